package services

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"
)

// ChainSettler is the distributed-ledger boundary. Only contract-backed
// quests ever touch it.
type ChainSettler interface {
	// SubmitSettlement moves the reward value on-chain and returns the
	// transaction hash (the settlement proof) once mined successfully.
	SubmitSettlement(ctx context.Context, contractQuestID int64, userWallet string, actionProof string) (string, error)

	// HasCompleted is the read-only prior-completion query on the contract.
	HasCompleted(ctx context.Context, contractQuestID int64, userWallet string) (bool, error)

	// CreateQuest deploys a funded quest and returns its on-chain id plus the
	// deposit transaction hash.
	CreateQuest(ctx context.Context, title, description string, baseReward, totalBudget float64, maxCompletions int64) (int64, string, error)
}

// Minimal QuestManager surface; mirrors the deployed contract.
const questManagerABI = `[
	{"type":"function","name":"createQuest","stateMutability":"payable","inputs":[{"name":"title","type":"string"},{"name":"description","type":"string"},{"name":"rewardAmount","type":"uint256"},{"name":"rewardToken","type":"address"},{"name":"maxCompletions","type":"uint256"}],"outputs":[{"name":"questId","type":"uint256"}]},
	{"type":"function","name":"completeQuest","stateMutability":"nonpayable","inputs":[{"name":"questId","type":"uint256"},{"name":"user","type":"address"},{"name":"proof","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"hasUserCompletedQuest","stateMutability":"view","inputs":[{"name":"questId","type":"uint256"},{"name":"user","type":"address"}],"outputs":[{"name":"","type":"bool"}]}
]`

const settlementGasLimit = 300_000

// EVMSettler settles against the QuestManager contract over JSON-RPC.
type EVMSettler struct {
	client   *ethclient.Client
	contract common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	abi      abi.ABI
}

// NewEVMSettlerFromEnv returns nil (contracts disabled) when no RPC endpoint
// is configured. Quests created while disabled are off-chain-only.
func NewEVMSettlerFromEnv() (*EVMSettler, error) {
	rpcURL := os.Getenv("SETTLEMENT_RPC_URL")
	if rpcURL == "" {
		log.Println("⚠️  SETTLEMENT_RPC_URL not set — on-chain settlement disabled")
		return nil, nil
	}

	contractHex := os.Getenv("QUEST_MANAGER_CONTRACT")
	if !common.IsHexAddress(contractHex) {
		return nil, fmt.Errorf("QUEST_MANAGER_CONTRACT is not a valid address: %q", contractHex)
	}
	keyHex := strings.TrimPrefix(os.Getenv("SETTLEMENT_PRIVATE_KEY"), "0x")
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid SETTLEMENT_PRIVATE_KEY: %w", err)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial settlement RPC: %w", err)
	}
	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to query chain id: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(questManagerABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse QuestManager ABI: %w", err)
	}

	return &EVMSettler{
		client:   client,
		contract: common.HexToAddress(contractHex),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		abi:      parsed,
	}, nil
}

// toWei converts a MON amount (18 decimals) to wei, truncating down.
func toWei(amount float64) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(params.Ether))
	wei, _ := f.Int(nil)
	return wei
}

func (s *EVMSettler) sendTx(ctx context.Context, value *big.Int, data []byte) (*types.Receipt, string, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, "", fmt.Errorf("nonce query failed: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("gas price query failed: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &s.contract,
		Value:    value,
		Gas:      settlementGasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, "", fmt.Errorf("tx signing failed: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return nil, "", fmt.Errorf("tx broadcast failed: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, s.client, signed)
	if err != nil {
		return nil, signed.Hash().Hex(), fmt.Errorf("waiting for tx %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, signed.Hash().Hex(), fmt.Errorf("tx %s reverted", signed.Hash().Hex())
	}
	return receipt, signed.Hash().Hex(), nil
}

func (s *EVMSettler) SubmitSettlement(ctx context.Context, contractQuestID int64, userWallet string, actionProof string) (string, error) {
	var proof common.Hash
	if actionProof != "" {
		proof = common.HexToHash(actionProof)
	}
	data, err := s.abi.Pack("completeQuest", big.NewInt(contractQuestID), common.HexToAddress(userWallet), proof)
	if err != nil {
		return "", fmt.Errorf("completeQuest pack failed: %w", err)
	}

	_, txHash, err := s.sendTx(ctx, big.NewInt(0), data)
	if err != nil {
		return "", err
	}
	return txHash, nil
}

func (s *EVMSettler) HasCompleted(ctx context.Context, contractQuestID int64, userWallet string) (bool, error) {
	data, err := s.abi.Pack("hasUserCompletedQuest", big.NewInt(contractQuestID), common.HexToAddress(userWallet))
	if err != nil {
		return false, err
	}
	res, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &s.contract, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("hasUserCompletedQuest call failed: %w", err)
	}
	out, err := s.abi.Unpack("hasUserCompletedQuest", res)
	if err != nil || len(out) == 0 {
		return false, fmt.Errorf("hasUserCompletedQuest unpack failed: %w", err)
	}
	completed, ok := out[0].(bool)
	if !ok {
		return false, errors.New("hasUserCompletedQuest returned non-bool")
	}
	return completed, nil
}

func (s *EVMSettler) CreateQuest(ctx context.Context, title, description string, baseReward, totalBudget float64, maxCompletions int64) (int64, string, error) {
	// Native token rewards for now; a token address would go here otherwise.
	rewardToken := common.Address{}
	data, err := s.abi.Pack("createQuest", title, description, toWei(baseReward), rewardToken, big.NewInt(maxCompletions))
	if err != nil {
		return 0, "", fmt.Errorf("createQuest pack failed: %w", err)
	}

	receipt, txHash, err := s.sendTx(ctx, toWei(totalBudget), data)
	if err != nil {
		return 0, txHash, err
	}

	// QuestCreated's first indexed argument is the quest id.
	for _, lg := range receipt.Logs {
		if lg.Address == s.contract && len(lg.Topics) >= 2 {
			return lg.Topics[1].Big().Int64(), txHash, nil
		}
	}
	return 0, txHash, fmt.Errorf("tx %s mined but no QuestCreated event found", txHash)
}
