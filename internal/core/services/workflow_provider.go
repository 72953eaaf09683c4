package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/middleware"
)

// fileWorkflowProvider loads <dir>/<productID>.yaml and caches the result per product.
// Products without a file use the default workflow.
type fileWorkflowProvider struct {
	dir      string
	fallback *domain.QuoteWorkflow

	mu    sync.RWMutex
	cache map[string]*domain.QuoteWorkflow
}

// NewWorkflowProvider creates a provider reading workflow files from dir. An empty dir
// always yields the default workflow.
func NewWorkflowProvider(dir string) portssvc.WorkflowProvider {
	return &fileWorkflowProvider{
		dir:      dir,
		fallback: domain.DefaultQuoteWorkflow(),
		cache:    make(map[string]*domain.QuoteWorkflow),
	}
}

var _ portssvc.WorkflowProvider = (*fileWorkflowProvider)(nil)

func (p *fileWorkflowProvider) GetWorkflow(ctx context.Context, productID string) (*domain.QuoteWorkflow, error) {
	if p.dir == "" {
		return p.fallback, nil
	}
	if productID == "" || strings.ContainsAny(productID, `/\`) || strings.HasPrefix(productID, ".") {
		return nil, fmt.Errorf("%w: invalid product id %q", apperrors.ErrValidation, productID)
	}

	p.mu.RLock()
	wf, ok := p.cache[productID]
	p.mu.RUnlock()
	if ok {
		return wf, nil
	}

	path := filepath.Join(p.dir, productID+".yaml")
	loaded, err := domain.LoadQuoteWorkflowFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		loaded = p.fallback
	case err != nil:
		middleware.GetLoggerFromCtx(ctx).Error("Failed to load quote workflow",
			slog.String("product_id", productID), slog.String("path", path), slog.String("error", err.Error()))
		return nil, err
	default:
		middleware.GetLoggerFromCtx(ctx).Info("Loaded quote workflow",
			slog.String("product_id", productID), slog.Int("operations", len(loaded.Operations)))
	}

	p.mu.Lock()
	p.cache[productID] = loaded
	p.mu.Unlock()
	return loaded, nil
}
