package handlers

import (
	"github.com/jmoiron/sqlx"
	"github.com/juju/clock"

	"gardenly/internal/config"
	"gardenly/internal/notify"
	"gardenly/internal/otp"
	"gardenly/internal/repos"
	"gardenly/internal/services"
)

type Deps struct {
	CatalogHandler  *CatalogHandler
	CartHandler     *CartHandler
	OrderHandler    *OrderHandler
	DeliveryHandler *DeliveryHandler
	TicketHandler   *TicketHandler
	AdminHandler    *AdminHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, auth *services.AuthService, notifier notify.Notifier) *Deps {
	catRepo := repos.NewCategoryRepo(db)
	catalogRepo := repos.NewCatalogRepo(db)
	cartRepo := repos.NewCartRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	accountRepo := auth.Accounts
	ticketRepo := repos.NewTicketRepo(db)

	issuer := otp.NewIssuer(cfg.OTPTTL, clock.WallClock)

	catalogSvc := services.NewCatalogService(catRepo, catalogRepo)
	cartSvc := services.NewCartService(cartRepo, catalogRepo)
	orderSvc := services.NewOrderService(cartRepo, catalogRepo, orderRepo, accountRepo, issuer, notifier)
	deliverySvc := services.NewDeliveryService(orderRepo, accountRepo, clock.WallClock)
	ticketSvc := services.NewTicketService(ticketRepo)

	return &Deps{
		CatalogHandler:  &CatalogHandler{Catalog: catalogSvc},
		CartHandler:     &CartHandler{Cart: cartSvc},
		OrderHandler:    &OrderHandler{Order: orderSvc},
		DeliveryHandler: &DeliveryHandler{Delivery: deliverySvc, Accounts: accountRepo},
		TicketHandler:   &TicketHandler{Tickets: ticketSvc},
		AdminHandler:    &AdminHandler{Orders: orderRepo, Accounts: accountRepo},
	}
}
