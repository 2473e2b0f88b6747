package telegramhelper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/researchaccelerator-hub/telegram-job/config"
	"github.com/rs/zerolog/log"
	"github.com/zelenin/go-tdlib/client"
)

// DefaultConnectTimeout bounds how long InitializeClient waits for TDLib to become ready.
const DefaultConnectTimeout = 30 * time.Second

// TelegramService defines an interface for creating authenticated Telegram clients.
// This abstraction allows the TDLib implementation to be replaced by a mock in tests.
//
// The interface provides methods for:
// - Initializing a TDLib client from the job configuration
// - Retrieving the authenticated user to confirm a session works
type TelegramService interface {
	// InitializeClient creates and authorises a TDLib client.
	//
	// Parameters:
	//   - cfg: Configuration holding the API credentials, phone number and storage root
	//
	// Returns:
	//   - An initialized TDLib client ready for reading and sending
	//   - An error if credentials are missing, TDLib fails or the connect timeout expires
	InitializeClient(cfg config.Config) (TDLibClient, error)

	// GetMe retrieves information about the authenticated user.
	// This is typically used to verify successful authentication.
	//
	// Parameters:
	//   - libClient: An initialized TDLib client
	//
	// Returns:
	//   - User information for the authenticated user
	//   - An error if retrieval fails
	GetMe(libClient TDLibClient) (*client.User, error)
}

// RealTelegramService is the concrete implementation of the TelegramService interface
// that uses the TDLib library for authenticating and communicating with Telegram servers.
//
// This service handles:
// - Credential lookup from .tdlib/credentials.json with a fallback to the configuration
// - The authorisation flow through the TDLib CLI interactor
// - Session storage in the TDLib database under <storage_root>/state/.tdlib
//
// A session authorised once with the login command is reused by every later run, so
// scheduled runs never prompt.
type RealTelegramService struct {
	// ConnectTimeout overrides DefaultConnectTimeout when positive. The login command raises it
	// to leave time for typing the confirmation code.
	ConnectTimeout time.Duration
}

// Credentials stores Telegram API authentication details, read from .tdlib/credentials.json
// when that file exists.
type Credentials struct {
	APIId       string `json:"api_id"`
	APIHash     string `json:"api_hash"`
	PhoneNumber string `json:"phone_number"`
	PhoneCode   string `json:"phone_code"`
}

// readCredentials loads credentials from <dir>/.tdlib/credentials.json.
func readCredentials(dir string) (*Credentials, error) {
	credsPath := filepath.Join(dir, ".tdlib", "credentials.json")

	if _, err := os.Stat(credsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("credentials file not found at %s", credsPath)
	}

	data, err := os.ReadFile(credsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials JSON: %w", err)
	}

	return &creds, nil
}

// resolveCredentials prefers the credentials file and falls back to the configuration.
func resolveCredentials(dir string, cfg config.Config) (apiID int, apiHash, phoneNumber, phoneCode string, err error) {
	creds, readErr := readCredentials(dir)
	if readErr == nil && creds != nil {
		log.Info().Msg("Using API credentials from stored file")
		apiID, err = strconv.Atoi(creds.APIId)
		if err != nil {
			return 0, "", "", "", fmt.Errorf("invalid API ID in credentials file: %w", err)
		}
		return apiID, creds.APIHash, creds.PhoneNumber, creds.PhoneCode, nil
	}

	log.Info().Msg("Using API credentials from configuration")
	if cfg.APIID == 0 || cfg.APIHash == "" {
		return 0, "", "", "", fmt.Errorf("api_id and api_hash are required")
	}
	return cfg.APIID, cfg.APIHash, cfg.PhoneNumber, os.Getenv("TG_PHONE_CODE"), nil
}

// SetupAuth exports the phone number and code for the TDLib CLI interactor, which reads
// TG_PHONE_NUMBER and TG_PHONE_CODE before prompting. Empty values leave the environment as is.
func SetupAuth(phoneNumber, phoneCode string) {
	if phoneNumber != "" {
		os.Setenv("TG_PHONE_NUMBER", phoneNumber)
		log.Debug().
			Str("phone_number_masked", maskPhoneNumber(phoneNumber)).
			Msg("Set TG_PHONE_NUMBER environment variable for authentication")
	} else {
		log.Debug().Msg("No phone number provided, will use existing TG_PHONE_NUMBER or prompt user")
	}

	if phoneCode != "" {
		os.Setenv("TG_PHONE_CODE", phoneCode)
		log.Debug().Msg("Set TG_PHONE_CODE environment variable for authentication")
	}
}

// maskPhoneNumber hides most digits of a phone number for logs.
func maskPhoneNumber(phoneNumber string) string {
	if len(phoneNumber) <= 4 {
		return "***"
	}

	// Keep the country code and the last 2 digits
	visiblePrefix := 3
	if len(phoneNumber) > 10 {
		visiblePrefix = 4
	}

	masked := phoneNumber[:visiblePrefix]
	for i := visiblePrefix; i < len(phoneNumber)-2; i++ {
		masked += "*"
	}
	masked += phoneNumber[len(phoneNumber)-2:]

	return masked
}

// tdlibParameters builds the TDLib parameters for the database under cfg.TDLibDir().
func tdlibParameters(cfg config.Config, apiID int, apiHash string) *client.SetTdlibParametersRequest {
	base := cfg.TDLibDir()
	return &client.SetTdlibParametersRequest{
		UseTestDc:           false,
		DatabaseDirectory:   filepath.Join(base, "database"),
		FilesDirectory:      cfg.TDLibFilesDir(),
		UseFileDatabase:     true,
		UseChatInfoDatabase: true,
		UseMessageDatabase:  true,
		UseSecretChats:      false,
		ApiId:               int32(apiID),
		ApiHash:             apiHash,
		SystemLanguageCode:  "en",
		DeviceModel:         "Server",
		SystemVersion:       "1.0.0",
		ApplicationVersion:  "1.0.0",
	}
}

// InitializeClient creates and authorises a TDLib client. When no session exists yet the CLI
// interactor prompts for the confirmation code on stdin.
//
// Parameters:
//   - cfg: Configuration providing credentials and the storage root
//
// Returns:
//   - An authorised TDLib client; the caller closes it with CloseClient
//   - An error if credentials are invalid, the directories cannot be created, TDLib reports
//     a failure or the client is not ready within the connect timeout
func (s *RealTelegramService) InitializeClient(cfg config.Config) (TDLibClient, error) {
	apiID, apiHash, phoneNumber, phoneCode, err := resolveCredentials(cfg.StorageRoot, cfg)
	if err != nil {
		return nil, err
	}

	params := tdlibParameters(cfg, apiID, apiHash)
	for _, dir := range []string{params.DatabaseDirectory, params.FilesDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create TDLib directory %s: %w", dir, err)
		}
	}
	log.Info().Str("database_dir", params.DatabaseDirectory).Msg("Using TDLib database directory")

	authorizer := client.ClientAuthorizer()
	authorizer.TdlibParameters <- params

	SetupAuth(phoneNumber, phoneCode)
	go client.CliInteractor(authorizer)

	clientReady := make(chan *client.Client, 1)
	errChan := make(chan error, 1)

	go func() {
		tdlibClient, err := client.NewClient(authorizer)
		if err != nil {
			errChan <- fmt.Errorf("failed to initialize TDLib client: %w", err)
			return
		}
		verb := client.SetLogVerbosityLevelRequest{NewVerbosityLevel: 1}
		tdlibClient.SetLogVerbosityLevel(&verb)
		clientReady <- tdlibClient
	}()

	timeout := s.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	select {
	case tdlibClient := <-clientReady:
		log.Info().Msg("Client initialized successfully")
		return tdlibClient, nil
	case err := <-errChan:
		log.Error().Err(err).Msg("Error initializing client")
		return nil, err
	case <-time.After(timeout):
		log.Warn().Dur("timeout", timeout).Msg("Timeout reached while connecting to Telegram")
		return nil, fmt.Errorf("timeout initializing TDLib client")
	}
}

// GetMe retrieves the authenticated Telegram user.
func (s *RealTelegramService) GetMe(tdlibClient TDLibClient) (*client.User, error) {
	user, err := tdlibClient.GetMe()
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve authenticated user")
		return nil, fmt.Errorf("failed to retrieve authenticated user: %w", err)
	}
	log.Info().Msgf("Logged in as: %s %s", user.FirstName, user.LastName)
	return user, nil
}

// GenCode authorises a session interactively and reports the account it belongs to.
func GenCode(service TelegramService, cfg config.Config) error {
	tdclient, err := service.InitializeClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize TDLib client: %w", err)
	}
	defer CloseClient(tdclient)

	user, err := service.GetMe(tdclient)
	if err != nil {
		return err
	}

	log.Info().Msgf("Authenticated as: %s %s", user.FirstName, user.LastName)
	return nil
}
