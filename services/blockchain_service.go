package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/smartsouq/smartsouq_backend/models"
	"github.com/smartsouq/smartsouq_backend/utils"
)

const (
	// AmountTolerance is the float tolerance when matching an incoming
	// transfer against an expected amount.
	AmountTolerance = 1e-5

	// RecencyWindow is how long after payment creation a transfer is still
	// considered a match.
	RecencyWindow = 15 * time.Minute

	// transferFetchLimit caps how many recent transfers are scanned per check.
	transferFetchLimit = 50
)

// BlockchainService checks the TRON network for incoming USDT transfers to
// the configured deposit wallet.
type BlockchainService struct {
	baseURL       string
	apiKey        string
	walletAddress string
	client        *http.Client
	debug         bool
}

// NewBlockchainService creates a new TronGrid-backed blockchain service
func NewBlockchainService() *BlockchainService {
	baseURL := os.Getenv("TRONGRID_API_URL")
	if baseURL == "" {
		baseURL = "https://api.trongrid.io"
	}

	apiKey := os.Getenv("TRONGRID_API_KEY")
	walletAddress := os.Getenv("USDT_WALLET_ADDRESS")

	if walletAddress == "" {
		log.Printf("WARNING: USDT_WALLET_ADDRESS is not set; payment verification will fail")
	}
	if apiKey == "" {
		log.Printf("WARNING: TRONGRID_API_KEY is not set; TronGrid requests may be throttled")
	}

	return &BlockchainService{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		walletAddress: walletAddress,
		client:        &http.Client{Timeout: 15 * time.Second},
		debug:         os.Getenv("TRONGRID_DEBUG") == "true",
	}
}

// NewBlockchainServiceWith builds a service against an explicit endpoint and
// wallet. Used by tests and the proxy status page.
func NewBlockchainServiceWith(baseURL, apiKey, walletAddress string) *BlockchainService {
	return &BlockchainService{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		walletAddress: walletAddress,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

// WalletAddress returns the deposit wallet this service watches.
func (s *BlockchainService) WalletAddress() string {
	return s.walletAddress
}

// fetchRecentTransfers returns up to transferFetchLimit confirmed TRC20
// transfers into the deposit wallet, newest first.
func (s *BlockchainService) fetchRecentTransfers(ctx context.Context) ([]models.TRC20Transfer, error) {
	if s.walletAddress == "" {
		return nil, fmt.Errorf("missing deposit wallet address. Please set USDT_WALLET_ADDRESS")
	}

	url := fmt.Sprintf("%s/v1/accounts/%s/transactions/trc20?only_confirmed=true&only_to=true&limit=%d",
		s.baseURL, s.walletAddress, transferFetchLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("TRON-PRO-API-KEY", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach TronGrid: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if s.debug {
		log.Printf("TronGrid response (%d): %s", resp.StatusCode, string(respBody))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TronGrid returned status %d", resp.StatusCode)
	}

	var trc20 models.TronGridTRC20Response
	if err := json.Unmarshal(respBody, &trc20); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !trc20.Success {
		return nil, fmt.Errorf("TronGrid reported failure")
	}

	return trc20.Data, nil
}

// VerifyTransaction scans recent transfers for one matching the expected
// amount within AmountTolerance, received no earlier than the payment's
// creation and no later than RecencyWindow after it.
func (s *BlockchainService) VerifyTransaction(ctx context.Context, expectedAmount float64, createdAt time.Time) (*models.VerificationResult, error) {
	transfers, err := s.fetchRecentTransfers(ctx)
	if err != nil {
		return nil, err
	}

	windowEnd := createdAt.Add(RecencyWindow)

	for _, transfer := range transfers {
		if !strings.EqualFold(transfer.TokenInfo.Symbol, "USDT") {
			continue
		}

		amount, err := utils.ParseTokenValue(transfer.Value, transfer.TokenInfo.Decimals)
		if err != nil {
			continue
		}

		receivedAt := time.UnixMilli(transfer.BlockTimestamp)
		if receivedAt.Before(createdAt) || receivedAt.After(windowEnd) {
			continue
		}

		if math.Abs(amount-expectedAmount) <= AmountTolerance {
			return &models.VerificationResult{
				Verified: true,
				TxID:     transfer.TransactionID,
				Amount:   amount,
			}, nil
		}
	}

	return &models.VerificationResult{
		Verified: false,
		Message:  "no matching transfer found",
	}, nil
}

// VerifyByTxID matches a transfer by exact transaction ID instead of the
// amount/time heuristic.
func (s *BlockchainService) VerifyByTxID(ctx context.Context, txID string) (*models.VerificationResult, error) {
	transfers, err := s.fetchRecentTransfers(ctx)
	if err != nil {
		return nil, err
	}

	for _, transfer := range transfers {
		if transfer.TransactionID != txID {
			continue
		}
		amount, err := utils.ParseTokenValue(transfer.Value, transfer.TokenInfo.Decimals)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transfer value: %w", err)
		}
		return &models.VerificationResult{
			Verified: true,
			TxID:     transfer.TransactionID,
			Amount:   amount,
		}, nil
	}

	return &models.VerificationResult{
		Verified: false,
		Message:  fmt.Sprintf("transaction %s not found among recent transfers", txID),
	}, nil
}
