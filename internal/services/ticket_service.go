package services

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"gardenly/internal/domain"
	"gardenly/internal/repos"
)

type TicketService struct {
	Tickets *repos.TicketRepo
}

func NewTicketService(tickets *repos.TicketRepo) *TicketService {
	return &TicketService{Tickets: tickets}
}

func (s *TicketService) Open(buyerID, subject, body string) (domain.Ticket, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" || body == "" {
		return domain.Ticket{}, domain.E(domain.KindInvalidArgument, "subject and body are required")
	}
	t := domain.Ticket{ID: uuid.NewString(), BuyerID: buyerID, Subject: subject, Body: body, Status: domain.TicketOpen}
	if err := s.Tickets.Create(t); err != nil {
		return domain.Ticket{}, err
	}
	return t, nil
}

func canModerate(a *domain.Account) bool {
	return a.Role == domain.RoleExpert || a.Role == domain.RoleAdmin
}

func (s *TicketService) get(ticketID string) (domain.Ticket, error) {
	t, err := s.Tickets.Get(ticketID)
	if err == sql.ErrNoRows {
		return domain.Ticket{}, domain.E(domain.KindNotFound, "ticket not found")
	}
	return t, err
}

// Reply appends to the thread. A staff reply marks the ticket answered, a
// buyer reply re-opens it.
func (s *TicketService) Reply(ticketID string, author *domain.Account, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.E(domain.KindInvalidArgument, "reply body is required")
	}
	t, err := s.get(ticketID)
	if err != nil {
		return err
	}
	if t.Status == domain.TicketClosed {
		return domain.E(domain.KindInvalidState, "ticket is closed")
	}
	if t.BuyerID != author.ID && !canModerate(author) {
		return domain.E(domain.KindForbidden, "not your ticket")
	}
	status := domain.TicketOpen
	if canModerate(author) {
		status = domain.TicketAnswered
	}
	return s.Tickets.AddReply(ticketID, author.ID, body, status)
}

func (s *TicketService) Close(ticketID string, actor *domain.Account) error {
	t, err := s.get(ticketID)
	if err != nil {
		return err
	}
	if t.BuyerID != actor.ID && !canModerate(actor) {
		return domain.E(domain.KindForbidden, "not your ticket")
	}
	if t.Status == domain.TicketClosed {
		return domain.E(domain.KindInvalidState, "ticket is already closed")
	}
	return s.Tickets.SetStatus(ticketID, domain.TicketClosed)
}

type TicketThread struct {
	Ticket  domain.Ticket        `json:"ticket"`
	Replies []domain.TicketReply `json:"replies"`
}

func (s *TicketService) Thread(ticketID string, actor *domain.Account) (TicketThread, error) {
	t, err := s.get(ticketID)
	if err != nil {
		return TicketThread{}, err
	}
	if t.BuyerID != actor.ID && !canModerate(actor) {
		return TicketThread{}, domain.E(domain.KindNotFound, "ticket not found")
	}
	replies, err := s.Tickets.Replies(ticketID)
	if err != nil {
		return TicketThread{}, err
	}
	return TicketThread{Ticket: t, Replies: replies}, nil
}

func (s *TicketService) ListMine(buyerID string) ([]domain.Ticket, error) {
	return s.Tickets.ListByBuyer(buyerID)
}

func (s *TicketService) ListOpen() ([]domain.Ticket, error) {
	return s.Tickets.ListOpen()
}
