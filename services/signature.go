package services

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var walletAddressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsWalletAddress reports whether s looks like a hex wallet address.
func IsWalletAddress(s string) bool {
	return walletAddressPattern.MatchString(s)
}

// NormalizeWallet lowercases an address for use as a storage key.
func NormalizeWallet(address string) string {
	return strings.ToLower(address)
}

// VerifyWalletSignature checks that signature was produced over exactly
// message by the key controlling address (EIP-191 personal_sign).
// Every failure collapses into ErrAuthenticationFailed.
func VerifyWalletSignature(address, message, signature string) error {
	if !IsWalletAddress(address) {
		return ErrAuthenticationFailed
	}

	sig := common.FromHex(signature)
	if len(sig) != crypto.SignatureLength {
		return ErrAuthenticationFailed
	}

	// Wallets return V as 27/28; go-ethereum expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte{}, sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return ErrAuthenticationFailed
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	if recovered != common.HexToAddress(address) {
		return ErrAuthenticationFailed
	}
	return nil
}
