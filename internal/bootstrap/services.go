package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/target/folio/config"
	"github.com/target/folio/internal/adapters/authroles"
	"github.com/target/folio/internal/adapters/mailer"
	redisadapter "github.com/target/folio/internal/adapters/redis"
	"github.com/target/folio/internal/adapters/schemafile"
	"github.com/target/folio/internal/core"
	"github.com/target/folio/internal/data"
	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/domain/route"
	"github.com/target/folio/internal/domain/schema"
	"github.com/target/folio/internal/ports"
	"github.com/target/folio/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Schema   *schema.Config
	Access   *service.AccessService
	Docs     *service.DocumentService
	Auth     *service.AuthService
	APIKeys  *service.APIKeyStrategy
	Init     *service.InitStatusTracker
	Hydrator *service.Hydrator
	Routes   *route.Table
	Sessions *redisadapter.SessionStore
	Cache    *data.RedisCacheRepo

	// OAuthLogin is true when an external provider signs admin users in.
	OAuthLogin bool
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	// Schema overrides loading Config.Admin.SchemaPath.
	Schema *schema.Config
	// Provider overrides the provider chosen by AUTH_MODE.
	Provider ports.AuthProvider
	Mailer   ports.Mailer
	Logger   *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Docs     *data.DocumentRepo
	Globals  *data.GlobalRepo
	Versions *data.VersionRepo
	Cache    *data.RedisCacheRepo
	Sessions *redisadapter.SessionStore
}

func buildRepositories(db *sql.DB, client redis.UniversalClient) *serviceRepositories {
	return &serviceRepositories{
		Docs:     data.NewDocumentRepo(db),
		Globals:  data.NewGlobalRepo(db),
		Versions: data.NewVersionRepo(db),
		Cache:    data.NewRedisCacheRepo(client),
		Sessions: redisadapter.NewSessionStore(client),
	}
}

// LoadSchema reads and validates the schema file named by the admin config.
func LoadSchema(cfg config.AdminConfig) (*schema.Config, error) {
	sc, err := schemafile.Load(cfg.SchemaPath, cfg.UserSlug)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return sc, nil
}

// NewServices wires repositories, services and the admin route table.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil || deps.RedisClient == nil {
		return ServiceContainer{}, errors.New("bootstrap: config, database and redis are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sc := deps.Schema
	if sc == nil {
		var err error
		if sc, err = LoadSchema(cfg.Admin); err != nil {
			return ServiceContainer{}, err
		}
	}

	provider, strategy := deps.Provider, domainauth.StrategyOIDC
	if provider == nil {
		var err error
		provider, strategy, err = BuildAuthProvider(AuthProviderConfig{
			Auth:      cfg.Auth,
			APIPrefix: cfg.Admin.APIPrefix,
			Logger:    logger,
		})
		if err != nil {
			return ServiceContainer{}, err
		}
	}

	repos := buildRepositories(deps.DB, deps.RedisClient)

	access, err := service.NewAccessService(service.AccessServiceOptions{
		Schema: sc,
		Cache: core.NewPermissionCache(core.PermissionCacheOptions{
			Cache:  repos.Cache,
			TTL:    cfg.Cache.PermissionTTL,
			Logger: logger,
		}),
		Config: service.AccessServiceConfig{UserSlug: cfg.Admin.UserSlug, Logger: logger},
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build access service: %w", err)
	}

	mail := service.MailSettings{
		Mailer:   deps.Mailer,
		AdminURL: strings.TrimRight(cfg.HTTP.BaseURL, "/") + cfg.Admin.RoutePrefix,
	}
	if mail.Mailer == nil {
		mail.Mailer = mailer.NewLogMailer(logger)
	}

	docs := service.NewDocumentService(service.DocumentServiceOptions{
		Repos: service.DocumentRepos{
			Docs:     repos.Docs,
			Globals:  repos.Globals,
			Versions: repos.Versions,
		},
		Access: access,
		Config: service.DocumentServiceConfig{
			Schema:   sc,
			Sessions: repos.Sessions,
			Mail:     mail,
			Logger:   logger,
		},
	})

	apiKeys, err := service.NewAPIKeyStrategy(service.APIKeyStrategyOptions{
		Finder: docs,
		Schema: sc,
		Config: service.APIKeyStrategyConfig{Secret: cfg.Secret, Logger: logger},
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build api key strategy: %w", err)
	}

	users, _ := sc.Collection(cfg.Admin.UserSlug)
	initStatus := service.NewInitStatusTracker(service.InitStatusTrackerOptions{
		Users:                 repos.Docs,
		UserSlug:              cfg.Admin.UserSlug,
		LocalStrategyDisabled: !users.LocalStrategyEnabled(),
		Config:                service.InitStatusConfig{Timeout: cfg.Admin.InitProbeTimeout, Logger: logger},
	})

	roles := authroles.StaticRoleMapper{
		AdminGroup: cfg.Auth.OAuth.AdminGroup,
		UserGroup:  cfg.Auth.OAuth.UserGroup,
	}
	auth := service.NewAuthService(service.AuthServiceOptions{
		Sessions:  repos.Sessions,
		Documents: docs,
		Config: service.AuthServiceConfig{
			Schema:           sc,
			UserSlug:         cfg.Admin.UserSlug,
			Provider:         provider,
			ProviderStrategy: strategy,
			Roles:            roles,
			RolesField:       cfg.Auth.RolesField,
			APIKeys:          apiKeys,
			Access:           access,
			Init:             initStatus,
			Mail:             mail,
			Throttle:         repos.Cache,
			SessionTTL:       cfg.Auth.SessionTTL,
			ResetTokenTTL:    cfg.Auth.ResetTokenTTL,
			Logger:           logger,
		},
	})

	hydrator := service.NewHydrator(service.HydratorOptions{
		Documents: docs,
		Schema:    sc,
		Config:    service.HydratorConfig{Logger: logger},
	})

	custom, err := CustomRoutes(sc)
	if err != nil {
		return ServiceContainer{}, err
	}
	table := route.Build(route.BuildInput{
		Collections:     sc.Collections,
		Globals:         sc.Globals,
		UserSlug:        cfg.Admin.UserSlug,
		LogoutRoute:     cfg.Admin.LogoutRoute,
		InactivityRoute: cfg.Admin.InactivityRoute,
		Custom:          custom,
	})

	return ServiceContainer{
		Schema:     sc,
		Access:     access,
		Docs:       docs,
		Auth:       auth,
		APIKeys:    apiKeys,
		Init:       initStatus,
		Hydrator:   hydrator,
		Routes:     table,
		Sessions:   repos.Sessions,
		Cache:      repos.Cache,
		OAuthLogin: provider != nil,
	}, nil
}
