// Package dynamo is the durable ledger driver backed by a single DynamoDB table.
//
// Item layout (pk / sk):
//
//	USER#<id>          PROFILE                 user
//	USERNAME#<name>    GUARD                   username uniqueness
//	USER#<from>        TUG#<ts>#<id>           tug
//	USER#<from>        TUGGED#<to>             tug edge presence
//	USER#<id>          MATCHREF#<matchId>      match membership
//	USER#<id>          RATING#<ts>#<id>        rating given or received
//	USER#<id>          SCAN#<ts>#<id>          radar scan
//	MATCH#<id>         MATCH                   match
//	MATCH#<id>         MSG#<seq>#<id>          message
//	PAIR#<u1>#<u2>     GUARD                   one match per pair
//	RATING#<key>       GUARD                   one rating per (rater, rated, match)
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"string_server/store"
)

// API is the subset of the DynamoDB client the driver uses.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// ClientConfig selects the region and, for DynamoDB Local, an endpoint override.
type ClientConfig struct {
	Region   string
	Endpoint string
	// Static credentials, used with local endpoints.
	AccessKeyID     string
	SecretAccessKey string
}

// NewClient initializes the DynamoDB client
func NewClient(ctx context.Context, cc ClientConfig) (*dynamodb.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cc.Region)}
	if cc.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cc.AccessKeyID, cc.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if cc.Endpoint != "" {
			o.BaseEndpoint = aws.String(cc.Endpoint)
		}
	}), nil
}

// Store implements store.Store on one DynamoDB table.
type Store struct {
	client      API
	table       string
	maxAttempts int
	log         zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// New wraps an existing client. Call EnsureTable before first use on a fresh account.
func New(client API, table string, maxAttempts int, log zerolog.Logger) *Store {
	return &Store{client: client, table: table, maxAttempts: maxAttempts, log: log}
}

// EnsureTable creates the ledger table when it does not exist and waits for it to become active.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		return nil
	}
	var nf *types.ResourceNotFoundException
	if !errors.As(err, &nf) {
		return fmt.Errorf("describe table '%s': %w", s.table, err)
	}

	s.log.Info().Str("table", s.table).Msg("creating dynamodb table")
	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrPK), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrSK), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrPK), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(attrSK), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table '%s': %w", s.table, err)
	}
	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, 2*time.Minute); err != nil {
		return fmt.Errorf("wait for table '%s': %w", s.table, err)
	}
	return nil
}

func (s *Store) WithTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	return store.Retry(ctx, s.maxAttempts, func() error {
		t := newTx(ctx, s, false)
		if err := fn(t); err != nil {
			return err
		}
		return t.commit()
	})
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(newTx(ctx, s, true))
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	return err
}

func (s *Store) Close() error { return nil }
