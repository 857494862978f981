package app

import (
	"context"

	"packledger/internal/core"
)

// ApplicationService is the single interface all entry points (CLI, future
// HTTP surface) call. It decouples presentation from the ledger logic.
// Implementations must contain no fmt.Println and no display logic.
type ApplicationService interface {
	// ProducePackage validates the untyped request document and records the
	// production event in the ledger. Calling it again with the same external
	// reference is a no-op that returns the original document number.
	ProducePackage(ctx context.Context, doc map[string]any) (*core.ProductionResult, error)

	// ValidateRequest runs the full validation pipeline without touching the
	// database. It returns the error a ProducePackage call would fail with.
	ValidateRequest(doc map[string]any) error

	// VerifySchema reports the target deployment's optional schema features
	// without writing anything.
	VerifySchema(ctx context.Context) (*core.SchemaReport, error)
}

type appService struct {
	producer *core.Producer
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(producer *core.Producer) ApplicationService {
	return &appService{producer: producer}
}

func (s *appService) ProducePackage(ctx context.Context, doc map[string]any) (*core.ProductionResult, error) {
	return s.producer.ProducePackage(ctx, doc)
}

func (s *appService) ValidateRequest(doc map[string]any) error {
	_, err := core.ParseRequest(doc)
	return err
}

func (s *appService) VerifySchema(ctx context.Context) (*core.SchemaReport, error) {
	return s.producer.VerifySchema(ctx)
}
