package app

import (
	"fmt"

	authHTTP "github.com/allisson/sessions/internal/auth/http"
	authRepository "github.com/allisson/sessions/internal/auth/repository"
	authService "github.com/allisson/sessions/internal/auth/service"
	authUseCase "github.com/allisson/sessions/internal/auth/usecase"
	"github.com/allisson/sessions/internal/config"
)

// SigningKey returns the token signing key, decrypted through KMS when KMS_KEY_URI is set.
func (c *Container) SigningKey() (string, error) {
	var err error
	c.signingKeyInit.Do(func() {
		c.signingKey, err = c.initSigningKey()
		if err != nil {
			c.initErrors["signingKey"] = err
		}
	})
	if err != nil {
		return "", err
	}
	if storedErr, exists := c.initErrors["signingKey"]; exists {
		return "", storedErr
	}
	return c.signingKey, nil
}

// TokenCodec returns the signed token codec.
func (c *Container) TokenCodec() (authService.TokenCodec, error) {
	var err error
	c.tokenCodecInit.Do(func() {
		c.tokenCodec, err = c.initTokenCodec()
		if err != nil {
			c.initErrors["tokenCodec"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenCodec"]; exists {
		return nil, storedErr
	}
	return c.tokenCodec, nil
}

// TokenService returns the correlation string generator.
func (c *Container) TokenService() authService.TokenService {
	c.tokenServiceInit.Do(func() {
		c.tokenService = authService.NewTokenService()
	})
	return c.tokenService
}

// PasswordService returns the password hasher.
func (c *Container) PasswordService() authService.PasswordService {
	c.passwordServiceInit.Do(func() {
		c.passwordService = authService.NewPasswordService()
	})
	return c.passwordService
}

// TokenRepository returns the token-pair store selected by TOKEN_STORE.
func (c *Container) TokenRepository() (authUseCase.TokenRepository, error) {
	var err error
	c.tokenRepositoryInit.Do(func() {
		c.tokenRepository, err = c.initTokenRepository()
		if err != nil {
			c.initErrors["tokenRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenRepository"]; exists {
		return nil, storedErr
	}
	return c.tokenRepository, nil
}

// TokenUseCase returns the token use case wrapped with business metrics.
func (c *Container) TokenUseCase() (authUseCase.TokenUseCase, error) {
	var err error
	c.tokenUseCaseInit.Do(func() {
		c.tokenUseCase, err = c.initTokenUseCase()
		if err != nil {
			c.initErrors["tokenUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenUseCase"]; exists {
		return nil, storedErr
	}
	return c.tokenUseCase, nil
}

// CredentialResolver returns the credential resolver wrapped with business metrics.
func (c *Container) CredentialResolver() (authUseCase.CredentialResolver, error) {
	var err error
	c.credentialResolverInit.Do(func() {
		c.credentialResolver, err = c.initCredentialResolver()
		if err != nil {
			c.initErrors["credentialResolver"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["credentialResolver"]; exists {
		return nil, storedErr
	}
	return c.credentialResolver, nil
}

// TokenHandler returns the HTTP handler for the session endpoints.
func (c *Container) TokenHandler() (*authHTTP.TokenHandler, error) {
	var err error
	c.tokenHandlerInit.Do(func() {
		c.tokenHandler, err = c.initTokenHandler()
		if err != nil {
			c.initErrors["tokenHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenHandler"]; exists {
		return nil, storedErr
	}
	return c.tokenHandler, nil
}

func (c *Container) initSigningKey() (string, error) {
	key, err := authService.NewSigningKeyService().
		LoadSigningKey(c.bgCtx, c.config.JWTSigningKey, c.config.KMSKeyURI)
	if err != nil {
		return "", fmt.Errorf("failed to load signing key: %w", err)
	}
	return key, nil
}

func (c *Container) initTokenCodec() (authService.TokenCodec, error) {
	key, err := c.SigningKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get signing key for token codec: %w", err)
	}
	return authService.NewTokenCodec(key, c.config.TokenClockSkew, nil), nil
}

// initTokenRepository picks the token store, then the SQL dialect for the database store.
func (c *Container) initTokenRepository() (authUseCase.TokenRepository, error) {
	switch c.config.TokenStore {
	case config.TokenStoreMemory:
		return authRepository.NewMemoryTokenRepository(), nil
	case config.TokenStoreRedis:
		client, err := c.RedisClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get redis client for token repository: %w", err)
		}
		return authRepository.NewRedisTokenRepository(client, c.config.RedisKeyPrefix), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for token repository: %w", err)
	}

	switch c.config.DBDriver {
	case config.DriverPostgres:
		return authRepository.NewPostgreSQLTokenRepository(db), nil
	case config.DriverMySQL:
		return authRepository.NewMySQLTokenRepository(db), nil
	case config.DriverSQLite:
		return authRepository.NewSQLiteTokenRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initTokenUseCase() (authUseCase.TokenUseCase, error) {
	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for token use case: %w", err)
	}

	codec, err := c.TokenCodec()
	if err != nil {
		return nil, fmt.Errorf("failed to get token codec for token use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for token use case: %w", err)
	}

	useCase := authUseCase.NewTokenUseCase(c.config, tokenRepo, codec, c.TokenService())
	return authUseCase.NewTokenUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initCredentialResolver() (authUseCase.CredentialResolver, error) {
	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for credential resolver: %w", err)
	}

	codec, err := c.TokenCodec()
	if err != nil {
		return nil, fmt.Errorf("failed to get token codec for credential resolver: %w", err)
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for credential resolver: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for credential resolver: %w", err)
	}

	resolver := authUseCase.NewCredentialResolver(codec, tokenRepo, userRepo, c.PasswordService(), c.Logger())
	return authUseCase.NewCredentialResolverWithMetrics(resolver, businessMetrics), nil
}

func (c *Container) initTokenHandler() (*authHTTP.TokenHandler, error) {
	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for token handler: %w", err)
	}

	resolver, err := c.CredentialResolver()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential resolver for token handler: %w", err)
	}

	return authHTTP.NewTokenHandler(tokenUseCase, resolver, c.Logger()), nil
}
