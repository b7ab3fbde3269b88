package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rockfridrich/villa-sub000/pkg/cryptox"
	"github.com/rockfridrich/villa-sub000/pkg/jwtx"
)

const ticketKID = "bridged-ticket-1"

// InitTicketKeys prepares the EdDSA key pair for session tickets.
//
// Storage modes:
//   - "ephemeral": a key is generated on startup and lives only in memory.
//     Outstanding tickets become invalid when the service restarts.
//   - "persistent": the private key is kept on disk, AES-GCM encrypted under
//     the master key. Tickets survive restarts.
func InitTicketKeys(cfg Config, logger *slog.Logger) (jwtx.Signer, *jwtx.KeySet, error) {
	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		logger.Info("master key path configured", "path", cfg.MasterKeyPath)
	}

	var signer jwtx.Signer
	var err error

	switch cfg.KeyStorageMode {
	case "persistent":
		signer, err = loadOrCreatePersistentKey(cfg, logger)
		if err != nil {
			return nil, nil, err
		}

	case "ephemeral":
		fallthrough
	default:
		signer, _, err = jwtx.GenerateEdDSA(ticketKID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate ephemeral ticket key: %w", err)
		}
		logger.Warn("ephemeral ticket key generated, outstanding tickets are now invalid")
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, nil, fmt.Errorf("failed to register ticket key: %w", err)
	}

	logger.Info("ticket signing key ready", "kid", signer.KID(), "mode", cfg.KeyStorageMode)
	return signer, keys, nil
}

func loadOrCreatePersistentKey(cfg Config, logger *slog.Logger) (jwtx.Signer, error) {
	encrypted, err := os.ReadFile(cfg.TicketKeyFile)
	if err == nil {
		pemData, derr := cryptox.DecryptPrivateKey(encrypted)
		if derr != nil {
			return nil, fmt.Errorf("failed to decrypt ticket key file: %w", derr)
		}
		signer, serr := jwtx.NewSignerEdDSA(ticketKID, pemData)
		if serr != nil {
			return nil, fmt.Errorf("failed to parse ticket key file: %w", serr)
		}
		logger.Info("persistent ticket key loaded", "path", cfg.TicketKeyFile)
		return signer, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read ticket key file: %w", err)
	}

	signer, pemData, err := jwtx.GenerateEdDSA(ticketKID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ticket key: %w", err)
	}
	encrypted, err = cryptox.EncryptPrivateKey(pemData)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt ticket key: %w", err)
	}
	if err := os.WriteFile(cfg.TicketKeyFile, encrypted, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write ticket key file: %w", err)
	}
	logger.Info("persistent ticket key generated", "path", cfg.TicketKeyFile)
	return signer, nil
}
