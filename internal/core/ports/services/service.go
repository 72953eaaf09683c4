package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers.
type ServiceContainer struct {
	User        UserSvcFacade
	Tenant      TenantSvcFacade
	Quote       QuoteSvcFacade
	Policy      PolicySvcFacade
	Patch       PolicyDataPatchSvc
	Payment     PaymentSvcFacade
	APIToken    APITokenSvc
	Token       TokenSvcFacade
	GoogleOAuth GoogleOAuthHandlerSvcFacade
}
