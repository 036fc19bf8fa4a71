// Package ethereum talks to the Election and ElectionFactory contracts over JSON-RPC.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
)

const healthCheckTimeout = 5 * time.Second

var ErrTransactionReverted = errors.New("transaction reverted")

type Client struct {
	rpc     *ethclient.Client
	logger  logrus.FieldLogger
	factory *bind.BoundContract

	electionABI abi.ABI
	key         *ecdsa.PrivateKey
	chainID     *big.Int
}

func NewClient(injector *do.Injector) (*Client, error) {
	config, err := do.Invoke[core.Config](injector)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[logrus.FieldLogger](injector)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.CollaboratorTimeout())
	defer cancel()

	return Dial(ctx, config.EthRPCURL(), config.EthFactoryAddress(), config.EthPrivateKey(), logger)
}

// Dial connects to the node at url. Without privateKey the client is read-only.
func Dial(ctx context.Context, url, factoryAddress, privateKey string, logger logrus.FieldLogger) (*Client, error) {
	if factoryAddress != "" && !common.IsHexAddress(factoryAddress) {
		return nil, fmt.Errorf("%w: factory address %q", core.ErrInvalidInput, factoryAddress)
	}

	electionABI, err := abi.JSON(strings.NewReader(electionABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse election abi: %w", err)
	}

	factoryABI, err := abi.JSON(strings.NewReader(factoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory abi: %w", err)
	}

	rpc, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to contract node: %w", err)
	}

	client := &Client{
		rpc:         rpc,
		logger:      logger.WithField("component", "ethereum.Client"),
		electionABI: electionABI,
	}

	if factoryAddress != "" {
		client.factory = bind.NewBoundContract(common.HexToAddress(factoryAddress), factoryABI, rpc, rpc, rpc)
	}

	if privateKey != "" {
		client.key, err = crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
		if err != nil {
			rpc.Close()

			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}

		client.chainID, err = rpc.ChainID(ctx)
		if err != nil {
			rpc.Close()

			return nil, fmt.Errorf("failed to get chain id: %w", err)
		}
	}

	client.logger.WithField("signer", client.DefaultSigner()).Info("Connected to contract node")

	return client, nil
}

func (c *Client) DefaultSigner() core.Signer {
	if c.key == nil {
		return ""
	}

	return core.Signer(crypto.PubkeyToAddress(c.key.PublicKey).Hex())
}

func (c *Client) ElectionSummary(ctx context.Context, address string) (core.ElectionSummary, error) {
	election, err := c.election(address)
	if err != nil {
		return core.ElectionSummary{}, err
	}

	details, err := c.call(ctx, election, "getElectionDetails")
	if err != nil {
		return core.ElectionSummary{}, err
	}

	if len(details) != 2 { //nolint:mnd
		return core.ElectionSummary{}, fmt.Errorf("%w: getElectionDetails returned %d values", core.ErrMalformedResponse, len(details))
	}

	name, nameOK := details[0].(string)
	description, descriptionOK := details[1].(string)

	if !nameOK || !descriptionOK {
		return core.ElectionSummary{}, fmt.Errorf("%w: getElectionDetails", core.ErrMalformedResponse)
	}

	status, err := c.status(ctx, election)
	if err != nil {
		return core.ElectionSummary{}, err
	}

	return core.ElectionSummary{Name: name, Description: description, Status: status}, nil
}

func (c *Client) CandidateCount(ctx context.Context, address string) (int, error) {
	election, err := c.election(address)
	if err != nil {
		return 0, err
	}

	out, err := c.call(ctx, election, "getNumOfCandidates")
	if err != nil {
		return 0, err
	}

	return uint256(out, 0, "getNumOfCandidates")
}

func (c *Client) Candidate(ctx context.Context, address string, index int) (core.ContractCandidate, error) {
	election, err := c.election(address)
	if err != nil {
		return core.ContractCandidate{}, err
	}

	out, err := c.call(ctx, election, "getCandidate", big.NewInt(int64(index)))
	if err != nil {
		return core.ContractCandidate{}, err
	}

	if len(out) != 5 { //nolint:mnd
		return core.ContractCandidate{}, fmt.Errorf("%w: getCandidate returned %d values", core.ErrMalformedResponse, len(out))
	}

	votes, err := uint256(out, 3, "getCandidate") //nolint:mnd
	if err != nil {
		return core.ContractCandidate{}, err
	}

	strs := make([]string, 0, 4) //nolint:mnd

	for _, i := range []int{0, 1, 2, 4} {
		s, ok := out[i].(string)
		if !ok {
			return core.ContractCandidate{}, fmt.Errorf("%w: getCandidate field %d", core.ErrMalformedResponse, i)
		}

		strs = append(strs, s)
	}

	return core.ContractCandidate{
		Name:         strs[0],
		Position:     strs[1],
		MetadataHash: strs[2],
		Votes:        votes,
		Email:        strs[3],
	}, nil
}

func (c *Client) AddCandidate(
	ctx context.Context, address, name, position, metadataHash, email string, signer core.Signer,
) (core.TransactionResult, error) {
	election, err := c.election(address)
	if err != nil {
		return core.TransactionResult{}, err
	}

	return c.transact(ctx, election, signer, "addCandidate", name, position, metadataHash, email)
}

func (c *Client) LookupElectionByIdentity(ctx context.Context, identity string, signer core.Signer) (core.ElectionRef, error) {
	if c.factory == nil {
		return core.ElectionRef{}, fmt.Errorf("%w: election factory", core.ErrCollaboratorDisabled)
	}

	out, err := c.callAs(ctx, c.factory, signer, "getDeployedElection", identity)
	if err != nil {
		return core.ElectionRef{}, err
	}

	if len(out) != 4 { //nolint:mnd
		return core.ElectionRef{}, fmt.Errorf("%w: getDeployedElection returned %d values", core.ErrMalformedResponse, len(out))
	}

	address, addressOK := out[0].(common.Address)
	name, nameOK := out[1].(string)
	description, descriptionOK := out[2].(string)
	admin, adminOK := out[3].(common.Address)

	if !addressOK || !nameOK || !descriptionOK || !adminOK {
		return core.ElectionRef{}, fmt.Errorf("%w: getDeployedElection", core.ErrMalformedResponse)
	}

	if admin == (common.Address{}) || address == (common.Address{}) {
		return core.ElectionRef{}, fmt.Errorf("%w: no election for %s", core.ErrElectionNotFound, identity)
	}

	return core.ElectionRef{Address: address.Hex(), Name: name, Description: description}, nil
}

func (c *Client) CreateElection(
	ctx context.Context, adminIdentity, name, description string, signer core.Signer,
) (core.TransactionResult, error) {
	if c.factory == nil {
		return core.TransactionResult{}, fmt.Errorf("%w: election factory", core.ErrCollaboratorDisabled)
	}

	return c.transact(ctx, c.factory, signer, "createElection", adminIdentity, name, description)
}

func (c *Client) EndElection(ctx context.Context, address string, signer core.Signer) (core.TransactionResult, error) {
	election, err := c.election(address)
	if err != nil {
		return core.TransactionResult{}, err
	}

	return c.transact(ctx, election, signer, "endElection")
}

func (c *Client) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	_, err := c.rpc.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("contract node is unhealthy: %w", err)
	}

	return nil
}

func (c *Client) Shutdown() error {
	c.rpc.Close()

	c.logger.Info("Contract client shut down")

	return nil
}

func (c *Client) election(address string) (*bind.BoundContract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q is not a contract address", core.ErrElectionNotFound, address)
	}

	return bind.NewBoundContract(common.HexToAddress(address), c.electionABI, c.rpc, c.rpc, c.rpc), nil
}

func (c *Client) status(ctx context.Context, election *bind.BoundContract) (core.Status, error) {
	out, err := c.call(ctx, election, "getElectionStatus")
	if err != nil {
		return "", err
	}

	if len(out) != 1 {
		return "", fmt.Errorf("%w: getElectionStatus returned %d values", core.ErrMalformedResponse, len(out))
	}

	raw, ok := out[0].(uint8)
	if !ok {
		return "", fmt.Errorf("%w: getElectionStatus", core.ErrMalformedResponse)
	}

	switch raw {
	case 0:
		return core.StatusPending, nil
	case 1:
		return core.StatusActive, nil
	case 2: //nolint:mnd
		return core.StatusCompleted, nil
	default:
		return "", fmt.Errorf("%w: unknown status %d", core.ErrMalformedResponse, raw)
	}
}

func (c *Client) call(ctx context.Context, contract *bind.BoundContract, method string, params ...any) ([]any, error) {
	return c.callAs(ctx, contract, "", method, params...)
}

func (c *Client) callAs(
	ctx context.Context, contract *bind.BoundContract, signer core.Signer, method string, params ...any,
) ([]any, error) {
	opts := &bind.CallOpts{Context: ctx}

	if signer != "" {
		opts.From = common.HexToAddress(string(signer))
	}

	var out []any

	err := contract.Call(opts, &out, method, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	return out, nil
}

func (c *Client) transact(
	ctx context.Context, contract *bind.BoundContract, signer core.Signer, method string, params ...any,
) (core.TransactionResult, error) {
	opts, err := c.transactOpts(ctx, signer)
	if err != nil {
		return core.TransactionResult{}, err
	}

	tx, err := contract.Transact(opts, method, params...)
	if err != nil {
		return core.TransactionResult{}, fmt.Errorf("failed to send %s: %w", method, err)
	}

	logger := c.logger.WithFields(logrus.Fields{
		"method": method,
		"tx":     tx.Hash().Hex(),
	})
	logger.Debug("Transaction sent")

	receipt, err := bind.WaitMined(ctx, c.rpc, tx)
	if err != nil {
		return core.TransactionResult{}, fmt.Errorf("failed to wait for %s: %w", method, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return core.TransactionResult{}, fmt.Errorf("%w: %s", ErrTransactionReverted, method)
	}

	logger.WithField("block", receipt.BlockNumber).Info("Transaction mined")

	return core.TransactionResult{Hash: tx.Hash().Hex(), Confirmed: true}, nil
}

func (c *Client) transactOpts(ctx context.Context, signer core.Signer) (*bind.TransactOpts, error) {
	if c.key == nil {
		return nil, fmt.Errorf("%w: no signing key", core.ErrCollaboratorDisabled)
	}

	if signer != "" && !strings.EqualFold(string(signer), string(c.DefaultSigner())) {
		return nil, fmt.Errorf("%w: no key for signer %s", core.ErrInvalidInput, signer)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	opts.Context = ctx

	return opts, nil
}

func uint256(out []any, i int, method string) (int, error) {
	if i >= len(out) {
		return 0, fmt.Errorf("%w: %s returned %d values", core.ErrMalformedResponse, method, len(out))
	}

	value, ok := out[i].(*big.Int)
	if !ok || value.Sign() < 0 || !value.IsInt64() {
		return 0, fmt.Errorf("%w: %s field %d is not a count", core.ErrMalformedResponse, method, i)
	}

	return int(value.Int64()), nil
}
