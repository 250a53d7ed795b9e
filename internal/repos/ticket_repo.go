package repos

import (
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gardenly/internal/domain"
)

type TicketRepo struct{ db *sqlx.DB }

func NewTicketRepo(db *sqlx.DB) *TicketRepo { return &TicketRepo{db: db} }

func (r *TicketRepo) Create(t domain.Ticket) error {
	_, err := r.db.Exec(`
	  INSERT INTO tickets(id, buyer_id, subject, body, status, created_at)
	  VALUES(?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, t.ID, t.BuyerID, t.Subject, t.Body, domain.TicketOpen)
	return err
}

func (r *TicketRepo) Get(id string) (domain.Ticket, error) {
	var t domain.Ticket
	err := r.db.Get(&t, `
	  SELECT id, buyer_id, subject, body, status, created_at, updated_at
	  FROM tickets WHERE id = ?
	`, id)
	return t, err
}

func (r *TicketRepo) ListByBuyer(buyerID string) ([]domain.Ticket, error) {
	out := []domain.Ticket{}
	err := r.db.Select(&out, `
	  SELECT id, buyer_id, subject, body, status, created_at, updated_at
	  FROM tickets
	  WHERE buyer_id = ?
	  ORDER BY datetime(created_at) DESC
	`, buyerID)
	return out, err
}

func (r *TicketRepo) ListOpen() ([]domain.Ticket, error) {
	out := []domain.Ticket{}
	err := r.db.Select(&out, `
	  SELECT id, buyer_id, subject, body, status, created_at, updated_at
	  FROM tickets
	  WHERE status != ?
	  ORDER BY datetime(created_at)
	`, domain.TicketClosed)
	return out, err
}

// AddReply appends a reply and bumps the ticket status in one transaction.
func (r *TicketRepo) AddReply(ticketID, authorID, body string, status domain.TicketStatus) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  INSERT INTO ticket_replies(id, ticket_id, author_id, body, created_at)
	  VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, uuid.NewString(), ticketID, authorID, body); err != nil {
		return err
	}
	if _, err := tx.Exec(`
	  UPDATE tickets SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, ticketID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *TicketRepo) Replies(ticketID string) ([]domain.TicketReply, error) {
	out := []domain.TicketReply{}
	err := r.db.Select(&out, `
	  SELECT id, ticket_id, author_id, body, created_at
	  FROM ticket_replies
	  WHERE ticket_id = ?
	  ORDER BY datetime(created_at), rowid
	`, ticketID)
	return out, err
}

func (r *TicketRepo) SetStatus(ticketID string, status domain.TicketStatus) error {
	_, err := r.db.Exec(`UPDATE tickets SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, ticketID)
	return err
}
