package services

import (
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/platform/config"
)

// Infrastructure groups the adapters the quote services depend on besides the repositories.
type Infrastructure struct {
	Locker  portsrepo.AggregateLocker
	Mirror  portsrepo.ReadModelMirror // optional
	Gateway portssvc.PaymentGateway
	Numbers portssvc.NumberGenerator
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, infra Infrastructure) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Tenant service first since every other service authorizes through it
	container.Tenant = NewTenantService(repos.TenantRepo)
	authorizer := container.Tenant.(portssvc.TenantAuthorizerSvc)

	container.User = NewUserService(repos.UserRepo)
	container.Token = NewTokenService(cfg, container.User)
	container.GoogleOAuth = NewGoogleOAuthHandlerService(cfg)
	container.APIToken = NewAPITokenService(repos.APITokenRepo, container.User, authorizer)

	options := []AggregateOption{
		WithTenantAuthorizer(authorizer),
		WithAggregateLocker(infra.Locker),
	}
	if infra.Mirror != nil {
		options = append(options, WithReadModelMirror(infra.Mirror))
	}
	workflows := NewWorkflowProvider(cfg.QuoteWorkflowDir)

	container.Quote = NewQuoteService(repos.QuoteRepo, workflows, infra.Numbers, options...)
	container.Policy = NewPolicyService(repos.QuoteRepo, workflows, infra.Numbers, options...)
	container.Patch = NewPolicyDataPatchService(repos.QuoteRepo, options...)
	container.Payment = NewPaymentService(repos.QuoteRepo, repos.TenantRepo, infra.Gateway, domain.MerchantFeeSchedule{
		Percentage: cfg.MerchantFeePercentage,
		Fixed:      cfg.MerchantFeeFixed,
		GSTRate:    cfg.GSTRate,
	}, options...)

	return container
}
