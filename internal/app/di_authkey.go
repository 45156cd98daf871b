package app

import (
	"fmt"
	"log/slog"

	authkeyHTTP "github.com/allisson/authkeys/internal/authkey/http"
	authkeyRepository "github.com/allisson/authkeys/internal/authkey/repository"
	authkeyService "github.com/allisson/authkeys/internal/authkey/service"
	authkeyUseCase "github.com/allisson/authkeys/internal/authkey/usecase"
	"github.com/allisson/authkeys/internal/database"
)

const redisLimiterPrefix = "authkeys:attempts:"

// KeyService returns the service generating and hashing authorization keys.
func (c *Container) KeyService() authkeyService.KeyService {
	c.keyServiceInit.Do(func() {
		c.keyService = authkeyService.NewKeyService()
	})
	return c.keyService
}

// KeyRepository returns the key repository based on database driver.
func (c *Container) KeyRepository() (authkeyUseCase.KeyRepository, error) {
	var err error
	c.keyRepositoryInit.Do(func() {
		c.keyRepository, err = c.initKeyRepository()
		if err != nil {
			c.initErrors["keyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyRepository"]; exists {
		return nil, storedErr
	}
	return c.keyRepository, nil
}

// KeyUseRepository returns the ledger repository based on database driver.
func (c *Container) KeyUseRepository() (authkeyUseCase.KeyUseRepository, error) {
	var err error
	c.keyUseRepositoryInit.Do(func() {
		c.keyUseRepository, err = c.initKeyUseRepository()
		if err != nil {
			c.initErrors["keyUseRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyUseRepository"]; exists {
		return nil, storedErr
	}
	return c.keyUseRepository, nil
}

// KeyUseCase returns the key lifecycle use case.
func (c *Container) KeyUseCase() (authkeyUseCase.KeyUseCase, error) {
	var err error
	c.keyUseCaseInit.Do(func() {
		c.keyUseCase, err = c.initKeyUseCase()
		if err != nil {
			c.initErrors["keyUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyUseCase, nil
}

// VerificationUseCase returns the verification and consumption use case.
func (c *Container) VerificationUseCase() (authkeyUseCase.VerificationUseCase, error) {
	var err error
	c.verificationUseCaseInit.Do(func() {
		c.verificationUseCase, err = c.initVerificationUseCase()
		if err != nil {
			c.initErrors["verificationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["verificationUseCase"]; exists {
		return nil, storedErr
	}
	return c.verificationUseCase, nil
}

// KeyUseUseCase returns the ledger query use case.
func (c *Container) KeyUseUseCase() (authkeyUseCase.KeyUseUseCase, error) {
	var err error
	c.keyUseUseCaseInit.Do(func() {
		c.keyUseUseCase, err = c.initKeyUseUseCase()
		if err != nil {
			c.initErrors["keyUseUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyUseUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyUseUseCase, nil
}

// PolicyTable returns the guard policy table, with AUTHKEY_POLICY_FILE overrides applied.
func (c *Container) PolicyTable() (*authkeyHTTP.PolicyTable, error) {
	var err error
	c.policyTableInit.Do(func() {
		c.policyTable, err = authkeyHTTP.LoadPolicyTable(c.config.AuthKeyPolicyFile)
		if err != nil {
			err = fmt.Errorf("failed to load policy table: %w", err)
			c.initErrors["policyTable"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["policyTable"]; exists {
		return nil, storedErr
	}
	return c.policyTable, nil
}

// IdentityResolver returns the resolver reading the trusted proxy identity headers.
func (c *Container) IdentityResolver() authkeyHTTP.IdentityResolver {
	c.identityResolverInit.Do(func() {
		c.identityResolver = authkeyHTTP.NewHeaderIdentityResolver(
			c.config.IdentityHeader,
			c.config.SuperuserHeader,
		)
	})
	return c.identityResolver
}

// Guard returns the enforcement guard.
func (c *Container) Guard() (*authkeyHTTP.Guard, error) {
	var err error
	c.guardInit.Do(func() {
		c.guard, err = c.initGuard()
		if err != nil {
			c.initErrors["guard"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["guard"]; exists {
		return nil, storedErr
	}
	return c.guard, nil
}

// AttemptLimiter returns the verification attempt limiter, or nil when rate limiting is disabled.
func (c *Container) AttemptLimiter() (authkeyHTTP.AttemptLimiter, error) {
	if !c.config.RateLimitEnabled {
		return nil, nil
	}

	var err error
	c.attemptLimiterInit.Do(func() {
		c.attemptLimiter, err = c.initAttemptLimiter()
		if err != nil {
			c.initErrors["attemptLimiter"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["attemptLimiter"]; exists {
		return nil, storedErr
	}
	return c.attemptLimiter, nil
}

// KeyHandler returns the HTTP handler for key management.
func (c *Container) KeyHandler() (*authkeyHTTP.KeyHandler, error) {
	var err error
	c.keyHandlerInit.Do(func() {
		c.keyHandler, err = c.initKeyHandler()
		if err != nil {
			c.initErrors["keyHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyHandler"]; exists {
		return nil, storedErr
	}
	return c.keyHandler, nil
}

// KeyUseHandler returns the HTTP handler for ledger queries.
func (c *Container) KeyUseHandler() (*authkeyHTTP.KeyUseHandler, error) {
	var err error
	c.keyUseHandlerInit.Do(func() {
		c.keyUseHandler, err = c.initKeyUseHandler()
		if err != nil {
			c.initErrors["keyUseHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyUseHandler"]; exists {
		return nil, storedErr
	}
	return c.keyUseHandler, nil
}

// AuthorizeHandler returns the HTTP handler for forward authorization.
func (c *Container) AuthorizeHandler() (*authkeyHTTP.AuthorizeHandler, error) {
	var err error
	c.authorizeHandlerInit.Do(func() {
		c.authorizeHandler, err = c.initAuthorizeHandler()
		if err != nil {
			c.initErrors["authorizeHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authorizeHandler"]; exists {
		return nil, storedErr
	}
	return c.authorizeHandler, nil
}

// initKeyRepository creates the key repository for the configured driver.
func (c *Container) initKeyRepository() (authkeyUseCase.KeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for key repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return authkeyRepository.NewMySQLKeyRepository(db), nil
	case database.DriverPostgres:
		return authkeyRepository.NewPostgreSQLKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initKeyUseRepository creates the ledger repository for the configured driver.
func (c *Container) initKeyUseRepository() (authkeyUseCase.KeyUseRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for key use repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return authkeyRepository.NewMySQLKeyUseRepository(db), nil
	case database.DriverPostgres:
		return authkeyRepository.NewPostgreSQLKeyUseRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initKeyUseCase creates the key lifecycle use case with all its dependencies.
func (c *Container) initKeyUseCase() (authkeyUseCase.KeyUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key use case: %w", err)
	}

	keyRepository, err := c.KeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get key repository for key use case: %w", err)
	}

	baseUseCase := authkeyUseCase.NewKeyUseCase(txManager, keyRepository, c.KeyService())

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for key use case: %w", err)
		}
		return authkeyUseCase.NewKeyUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initVerificationUseCase creates the verification use case with all its dependencies.
func (c *Container) initVerificationUseCase() (authkeyUseCase.VerificationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for verification use case: %w", err)
	}

	keyRepository, err := c.KeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get key repository for verification use case: %w", err)
	}

	keyUseRepository, err := c.KeyUseRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get key use repository for verification use case: %w", err)
	}

	baseUseCase := authkeyUseCase.NewVerificationUseCase(
		txManager,
		keyRepository,
		keyUseRepository,
		c.KeyService(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for verification use case: %w", err)
		}
		return authkeyUseCase.NewVerificationUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initKeyUseUseCase creates the ledger query use case.
func (c *Container) initKeyUseUseCase() (authkeyUseCase.KeyUseUseCase, error) {
	keyUseRepository, err := c.KeyUseRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get key use repository for key use use case: %w", err)
	}

	baseUseCase := authkeyUseCase.NewKeyUseUseCase(keyUseRepository)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for key use use case: %w", err)
		}
		return authkeyUseCase.NewKeyUseUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initGuard creates the guard with the default target resolver.
func (c *Container) initGuard() (*authkeyHTTP.Guard, error) {
	verificationUseCase, err := c.VerificationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get verification use case for guard: %w", err)
	}

	return authkeyHTTP.NewGuard(
		verificationUseCase,
		c.IdentityResolver(),
		nil,
		c.Logger(),
		c.config.AuthKeyRealm,
		c.config.AuthKeyFallbackRedirect,
	), nil
}

// initAttemptLimiter creates the limiter for the configured backend.
func (c *Container) initAttemptLimiter() (authkeyHTTP.AttemptLimiter, error) {
	switch c.config.RateLimitBackend {
	case "redis":
		client, err := c.RedisClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get redis client for attempt limiter: %w", err)
		}
		c.Logger().Info("attempt limiter using redis", slog.String("prefix", redisLimiterPrefix))
		return authkeyHTTP.NewRedisAttemptLimiter(
			client,
			redisLimiterPrefix,
			c.config.RateLimitRequestsPerSec,
			c.config.RateLimitBurst,
		), nil
	case "memory", "":
		return authkeyHTTP.NewMemoryAttemptLimiter(
			c.backgroundCtx,
			c.config.RateLimitRequestsPerSec,
			c.config.RateLimitBurst,
		), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", c.config.RateLimitBackend)
	}
}

// initKeyHandler creates the key management handler.
func (c *Container) initKeyHandler() (*authkeyHTTP.KeyHandler, error) {
	keyUseCase, err := c.KeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key use case for key handler: %w", err)
	}

	keyUseUseCase, err := c.KeyUseUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key use use case for key handler: %w", err)
	}

	return authkeyHTTP.NewKeyHandler(keyUseCase, keyUseUseCase, c.Logger()), nil
}

// initKeyUseHandler creates the ledger query handler.
func (c *Container) initKeyUseHandler() (*authkeyHTTP.KeyUseHandler, error) {
	keyUseUseCase, err := c.KeyUseUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key use use case for key use handler: %w", err)
	}

	return authkeyHTTP.NewKeyUseHandler(keyUseUseCase, c.Logger()), nil
}

// initAuthorizeHandler creates the forward authorization handler.
func (c *Container) initAuthorizeHandler() (*authkeyHTTP.AuthorizeHandler, error) {
	guard, err := c.Guard()
	if err != nil {
		return nil, fmt.Errorf("failed to get guard for authorize handler: %w", err)
	}

	policies, err := c.PolicyTable()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy table for authorize handler: %w", err)
	}

	return authkeyHTTP.NewAuthorizeHandler(guard, policies, c.Logger()), nil
}
