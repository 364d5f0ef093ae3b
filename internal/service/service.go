package service

import (
	"context"
	"io"

	"example.com/fleetops/config"
	"example.com/fleetops/internal/blitz"
	"example.com/fleetops/internal/dispatch"
	"example.com/fleetops/internal/lark"
	"example.com/fleetops/internal/messaging"
	"example.com/fleetops/internal/models"
	"example.com/fleetops/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Service provides the back-office business operations
type Service interface {
	// Drivers
	UploadDrivers(ctx context.Context, rows []*models.Driver, replaceAll bool) ([]*models.Driver, error)
	ListDrivers(ctx context.Context) ([]*models.Driver, error)
	UpdateDriver(ctx context.Context, id uint, input *models.Driver) (*models.Driver, error)
	DeleteDriver(ctx context.Context, id uint) error
	DeleteDrivers(ctx context.Context, ids []uint) (int64, error)

	// Fleet
	UploadFleet(ctx context.Context, rows []*models.Fleet, replaceAll bool) (*FleetUploadSummary, error)
	ListFleet(ctx context.Context, q repository.FleetQuery) ([]*models.Fleet, int64, error)
	FleetFilters(ctx context.Context) (*repository.FleetFilters, error)
	FleetByPlate(ctx context.Context, plate string) ([]*models.Fleet, error)
	ExportFleet(ctx context.Context, q repository.FleetQuery) (*excelize.File, error)
	FleetInfo(ctx context.Context) (int64, error)
	FleetRoster(ctx context.Context) ([]lark.RosterEntry, error)
	UpdateFleet(ctx context.Context, id uint, input *models.Fleet) (*models.Fleet, error)
	DeleteFleet(ctx context.Context, id uint) (*models.Fleet, error)
	DeleteFleetMany(ctx context.Context, ids []uint) (int64, error)
	DeleteAllFleet(ctx context.Context) (int64, error)

	// Sellers
	UploadSellers(ctx context.Context, rows []*models.Seller) ([]*models.Seller, error)
	ListSellers(ctx context.Context) ([]*models.Seller, error)
	UpdateSeller(ctx context.Context, id uint, input *models.Seller) (*models.Seller, error)
	DeleteSeller(ctx context.Context, id uint) error
	DeleteSellers(ctx context.Context, ids []uint) (int64, error)

	// Driver bonuses
	ReplaceBonuses(ctx context.Context, rows []*models.DriverBonus) (int, error)
	AppendBonuses(ctx context.Context, rows []*models.DriverBonus) (*BonusAppendSummary, error)
	ListBonuses(ctx context.Context) ([]*models.DriverBonus, error)
	BonusesByHub(ctx context.Context, hub string) ([]*models.DriverBonus, error)
	DeleteAllBonuses(ctx context.Context) (int64, error)

	// Merchant orders (project-scoped)
	UploadMerchantOrders(ctx context.Context, project string, rows []*models.MerchantOrder) (*OrderUploadSummary, error)
	ListMerchantOrders(ctx context.Context, project string) ([]*models.MerchantOrder, error)
	GetMerchantOrder(ctx context.Context, project string, id uint) (*models.MerchantOrder, error)
	UpdateMerchantOrder(ctx context.Context, project string, id uint, input *models.MerchantOrder) (*models.MerchantOrder, error)
	DeleteMerchantOrder(ctx context.Context, project string, id uint) error
	DeleteAllMerchantOrders(ctx context.Context, project string) (int64, error)
	ValidateSender(ctx context.Context, senderName string) (*models.SenderValidation, error)
	ValidateSenders(ctx context.Context, senderNames []string) (map[string]*models.SenderValidation, []string, error)
	AssignOrders(ctx context.Context, project string, req AssignRequest) (*AssignResult, error)
	UnassignOrder(ctx context.Context, project string, id uint) (*models.MerchantOrder, error)

	// Outbound messages
	UploadMessages(ctx context.Context, file io.Reader) (int, error)
	ListMessages(ctx context.Context) ([]*models.PhoneMessage, error)
	DeleteAllMessages(ctx context.Context) error
	SendMessages(ctx context.Context, opts dispatch.Options, emit dispatch.Emitter) (*dispatch.Summary, error)
	MessageLogs(ctx context.Context, status, batchID string) ([]*models.MessageLog, error)
	ExportMessageLogs(ctx context.Context, batchID string) (*excelize.File, error)
	MessageStatistics(ctx context.Context, batchID string) (*MessageStatistics, error)

	// Projects
	KnownProject(project string) bool
}

// service is an implementation of the Service interface
type service struct {
	repo       repository.Repository
	bus        messaging.ServiceBusClient
	blitz      blitz.Client
	dispatcher *dispatch.Dispatcher
	roster     *lark.RosterSource
	validate   *validator.Validate
	projects   map[string]struct{}
	log        *logrus.Logger
}

// NewService creates a new service instance
func NewService(
	repo repository.Repository,
	bus messaging.ServiceBusClient,
	blitzClient blitz.Client,
	dispatcher *dispatch.Dispatcher,
	roster *lark.RosterSource,
	projects config.ProjectsConfig,
	log *logrus.Logger,
) Service {
	allowed := make(map[string]struct{}, len(projects.Allowed))
	for _, p := range projects.Allowed {
		allowed[p] = struct{}{}
	}

	return &service{
		repo:       repo,
		bus:        bus,
		blitz:      blitzClient,
		dispatcher: dispatcher,
		roster:     roster,
		validate:   validator.New(),
		projects:   allowed,
		log:        log,
	}
}

// KnownProject reports whether the project is on the configured allow-list.
func (s *service) KnownProject(project string) bool {
	_, ok := s.projects[project]
	return ok
}

// requireProject guards every project-scoped operation.
func (s *service) requireProject(project string) error {
	if !s.KnownProject(project) {
		return &UnknownProjectError{Project: project}
	}
	return nil
}

// publishAudit sends a best-effort audit event. Failures are logged only.
func (s *service) publishAudit(ctx context.Context, event interface{}, sessionID string) {
	if err := s.bus.SendMessage(ctx, event, sessionID); err != nil {
		s.log.WithError(err).Warn("Failed to publish audit event")
	}
}
