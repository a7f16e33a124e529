package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/godilite/kpi-server/internal/scoring"
	"github.com/godilite/kpi-server/internal/service"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const defaultGRPCTimeout = 10 * time.Second

type GRPCHandlers struct {
	svc    IngestionService
	logger *zap.Logger
}

// NewGRPCHandlers initializes the gRPC handlers.
func NewGRPCHandlers(svc IngestionService, logger *zap.Logger) *GRPCHandlers {
	if svc == nil {
		panic("nil IngestionService provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandlers{
		svc:    svc,
		logger: logger.Named("grpc-handler"),
	}
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrKpiNotFound), errors.Is(err, service.ErrNoValues):
		s.logger.Info("not found", zap.String("op", op), zap.Error(err))
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, scoring.ErrNotAuthorized):
		s.logger.Info("updater not authorized", zap.String("op", op), zap.Error(err))
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, scoring.ErrCoercion),
		errors.Is(err, scoring.ErrConfigurationInconsistent),
		errors.Is(err, service.ErrInvalidInput):
		s.logger.Info("invalid request", zap.String("op", op), zap.Error(err))
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, scoring.ErrNoteRequired):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *GRPCHandlers) ConfigureKpi(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cfg, err := configurationFrom(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	if err := s.svc.ConfigureKpi(ctx, cfg); err != nil {
		return nil, s.handleError(ctx, "ConfigureKpi", err)
	}
	return toStruct(map[string]any{
		"kpi_id":            cfg.ID,
		"name":              cfg.Name,
		"scoring_type":      string(cfg.ScoringType),
		"data_type":         string(cfg.DataType),
		"decimal_precision": float64(cfg.DecimalPrecision),
	})
}

func (s *GRPCHandlers) GrantUpdater(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	kpiID, err := requiredString(req, "kpi_id")
	if err != nil {
		return nil, err
	}
	updaterID, err := requiredString(req, "updater_id")
	if err != nil {
		return nil, err
	}
	grant := scoring.Grant{
		KpiID:               kpiID,
		UpdaterID:           updaterID,
		CanModifyThresholds: boolField(req, "can_modify_thresholds"),
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	if err := s.svc.GrantUpdater(ctx, grant); err != nil {
		return nil, s.handleError(ctx, "GrantUpdater", err)
	}
	return toStruct(map[string]any{
		"kpi_id":                grant.KpiID,
		"updater_id":            grant.UpdaterID,
		"can_modify_thresholds": grant.CanModifyThresholds,
	})
}

func (s *GRPCHandlers) SetPolicy(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	policy := scoring.Policy{RequireNoteOnRed: boolField(req, "require_note_on_red")}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	if err := s.svc.SetPolicy(ctx, policy); err != nil {
		return nil, s.handleError(ctx, "SetPolicy", err)
	}
	return toStruct(map[string]any{"require_note_on_red": policy.RequireNoteOnRed})
}

func (s *GRPCHandlers) SubmitValue(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	kpiID, err := requiredString(req, "kpi_id")
	if err != nil {
		return nil, err
	}
	updaterID, err := requiredString(req, "updater_id")
	if err != nil {
		return nil, err
	}
	obs, err := observationFrom(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	value, err := s.svc.SubmitValue(ctx, kpiID, updaterID, obs)
	if err != nil {
		return nil, s.handleError(ctx, "SubmitValue", err)
	}
	return toStruct(valueMap(value))
}

func (s *GRPCHandlers) ImportValues(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	kpiID, err := requiredString(req, "kpi_id")
	if err != nil {
		return nil, err
	}
	updaterID, err := requiredString(req, "updater_id")
	if err != nil {
		return nil, err
	}

	items := req.GetFields()["rows"].GetListValue().GetValues()
	if len(items) == 0 {
		return nil, status.Error(codes.InvalidArgument, "rows are required")
	}
	rows := make([]scoring.RawObservation, len(items))
	for i, item := range items {
		row := item.GetStructValue()
		if row == nil {
			return nil, status.Errorf(codes.InvalidArgument, "row %d must be an object", i)
		}
		rows[i] = importRowFrom(row)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	result, err := s.svc.ImportValues(ctx, kpiID, updaterID, rows)
	if err != nil {
		return nil, s.handleError(ctx, "ImportValues", err)
	}
	return toStruct(batchMap(result))
}

func (s *GRPCHandlers) ListValues(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	kpiID, err := requiredString(req, "kpi_id")
	if err != nil {
		return nil, err
	}
	start, err := dateField(req, "start_date")
	if err != nil {
		return nil, err
	}
	end, err := dateField(req, "end_date")
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, status.Error(codes.InvalidArgument, "end date must not be before start date")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	values, err := s.svc.ListValues(ctx, kpiID, start, end)
	if err != nil {
		return nil, s.handleError(ctx, "ListValues", err)
	}
	return toStruct(map[string]any{"values": valueList(values)})
}
