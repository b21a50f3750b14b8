package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// LoadEnv loads environment variables from .env file if it exists
func LoadEnv(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		// .env file is optional
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Only set if not already set in environment
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}

// GetRPCEndpoints returns RPC endpoints from environment or default
func GetRPCEndpoints() []string {
	envEndpoints := os.Getenv("RPC_ENDPOINTS")
	if envEndpoints == "" {
		return nil
	}

	endpoints := strings.Split(envEndpoints, ",")
	result := make([]string, 0, len(endpoints))
	for _, endpoint := range endpoints {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// GetAddress reads a base58-encoded address from the environment. An unset
// variable returns the zero address without error.
func GetAddress(key string) (solana.PublicKey, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return solana.PublicKey{}, nil
	}

	decoded, err := base58.Decode(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s is not valid base58: %w", key, err)
	}
	if len(decoded) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("%s decodes to %d bytes, want %d", key, len(decoded), solana.PublicKeyLength)
	}

	return solana.PublicKeyFromBytes(decoded), nil
}

// GetReferrerFeeBps reads REFERRER_FEE_BPS, defaulting to zero when unset.
func GetReferrerFeeBps() (uint32, error) {
	value := strings.TrimSpace(os.Getenv("REFERRER_FEE_BPS"))
	if value == "" {
		return 0, nil
	}

	bps, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("REFERRER_FEE_BPS is not a valid rate: %w", err)
	}
	return uint32(bps), nil
}
