package state

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	daprc "github.com/dapr/go-sdk/client"
	"github.com/researchaccelerator-hub/telegram-job/model"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	defaultStateStoreName = "statestore"
	daprKeyPrefix         = "telegram-job/"
)

// daprStateClient is the subset of the Dapr client used by DaprLedger.
type daprStateClient interface {
	SaveState(ctx context.Context, storeName, key string, data []byte, meta map[string]string, so ...daprc.StateOption) error
	GetState(ctx context.Context, storeName, key string, meta map[string]string) (*daprc.StateItem, error)
	Close()
}

// DaprLedger stores job records in a Dapr state store, which lets the job run as a sidecar
// workload next to whatever database the Dapr component points at.
type DaprLedger struct {
	client         daprStateClient
	stateStoreName string
}

// NewDaprLedger connects to the local Dapr sidecar on the given gRPC port.
func NewDaprLedger(grpcPort, stateStoreName string) (*DaprLedger, error) {
	if grpcPort == "" {
		grpcPort = "50001"
	}
	if stateStoreName == "" {
		stateStoreName = defaultStateStoreName
	}

	conn, err := grpc.Dial(
		net.JoinHostPort("127.0.0.1", grpcPort),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	log.Info().Str("state_store", stateStoreName).Str("port", grpcPort).Msg("Using Dapr job ledger")
	return newDaprLedgerWithClient(daprc.NewClientWithConnection(conn), stateStoreName), nil
}

func newDaprLedgerWithClient(client daprStateClient, stateStoreName string) *DaprLedger {
	return &DaprLedger{client: client, stateStoreName: stateStoreName}
}

func (l *DaprLedger) Get(ctx context.Context, key string) (*model.JobRecord, error) {
	item, err := l.client.GetState(ctx, l.stateStoreName, daprKeyPrefix+key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get job record from DAPR: %w", err)
	}
	if item == nil || len(item.Value) == 0 {
		return nil, nil
	}

	var rec model.JobRecord
	if err := json.Unmarshal(item.Value, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse job record data: %w", err)
	}
	return &rec, nil
}

func (l *DaprLedger) Put(ctx context.Context, rec model.JobRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode job record: %w", err)
	}
	if err := l.client.SaveState(ctx, l.stateStoreName, daprKeyPrefix+rec.Key, data, nil); err != nil {
		return fmt.Errorf("failed to save job record to DAPR: %w", err)
	}
	return nil
}

func (l *DaprLedger) Close() error {
	l.client.Close()
	return nil
}
