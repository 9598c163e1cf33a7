package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"thoughtgraph/application/ports"
	"thoughtgraph/domain/core/aggregates"
	"thoughtgraph/domain/core/entities"
	apperrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxMergeAttempts bounds the optimistic-lock retries of MergeGraph
const maxMergeAttempts = 3

// Key prefixes of the single-table layout:
//
//	PK=USER#<user>  SK=GRAPH#<graph>  one graph, snapshot in Data
//	PK=USER#<user>  SK=NAME#<name>    name reservation pointing at the graph
const (
	userPrefix  = "USER#"
	graphPrefix = "GRAPH#"
	namePrefix  = "NAME#"
)

// API is the subset of the DynamoDB client the repository uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// graphItem is the stored form of one graph
type graphItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	GraphID    string `dynamodbav:"GraphID"`
	UserID     string `dynamodbav:"UserID"`
	Name       string `dynamodbav:"Name"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
	Version    int    `dynamodbav:"Version"`
	Data       string `dynamodbav:"Data,omitempty"`
}

// nameItem reserves a graph name for one user
type nameItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	GraphID    string `dynamodbav:"GraphID"`
}

// GraphRepository implements ports.GraphRepository on a DynamoDB table
// keyed by PK and SK. Snapshots are stored as JSON in one attribute, so a
// graph is bounded by the 400 KB item limit.
type GraphRepository struct {
	client    API
	tableName string
	logger    *zap.Logger
}

var _ ports.GraphRepository = (*GraphRepository)(nil)

// NewGraphRepository creates a new GraphRepository
func NewGraphRepository(client API, tableName string, logger *zap.Logger) *GraphRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func userKey(userID string) string { return userPrefix + userID }

func (r *GraphRepository) key(userID, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userKey(userID)},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// ListThreads returns the user's graphs, newest first
func (r *GraphRepository) ListThreads(ctx context.Context, userID string) ([]entities.Thread, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(userKey(userID))).
		And(expression.Key("SK").BeginsWith(graphPrefix))
	projection := expression.NamesList(
		expression.Name("GraphID"),
		expression.Name("Name"),
		expression.Name("CreatedAt"),
	)

	expr, err := expression.NewBuilder().
		WithKeyCondition(keyExpr).
		WithProjection(projection).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	threads := []entities.Thread{}
	var startKey map[string]types.AttributeValue
	for {
		result, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query graphs: %w", err)
		}

		for _, raw := range result.Items {
			var item graphItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to parse graph item", zap.Error(err))
				continue
			}
			threads = append(threads, entities.Thread{ID: item.GraphID, Name: item.Name, CreatedAt: item.CreatedAt})
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	// RFC 3339 in UTC sorts lexically
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].CreatedAt > threads[j].CreatedAt
	})
	return threads, nil
}

// CreateThread creates an empty graph. The graph and its name reservation
// are written in one transaction, so names stay unique per user.
func (r *GraphRepository) CreateThread(ctx context.Context, userID, name string) (entities.Thread, error) {
	now := utils.NowRFC3339()
	thread := entities.Thread{ID: uuid.New().String(), Name: name, CreatedAt: now}

	data, err := json.Marshal(aggregates.EmptyGraphData())
	if err != nil {
		return entities.Thread{}, err
	}
	graphAV, err := attributevalue.MarshalMap(graphItem{
		PK:         userKey(userID),
		SK:         graphPrefix + thread.ID,
		EntityType: "GRAPH",
		GraphID:    thread.ID,
		UserID:     userID,
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
		Data:       string(data),
	})
	if err != nil {
		return entities.Thread{}, fmt.Errorf("failed to marshal graph: %w", err)
	}
	nameAV, err := attributevalue.MarshalMap(nameItem{
		PK:         userKey(userID),
		SK:         namePrefix + name,
		EntityType: "GRAPH_NAME",
		GraphID:    thread.ID,
	})
	if err != nil {
		return entities.Thread{}, fmt.Errorf("failed to marshal graph name: %w", err)
	}

	notExists, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return entities.Thread{}, fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     nameAV,
				ConditionExpression:      notExists.Condition(),
				ExpressionAttributeNames: notExists.Names(),
			}},
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     graphAV,
				ConditionExpression:      notExists.Condition(),
				ExpressionAttributeNames: notExists.Names(),
			}},
		},
	})
	if err != nil {
		if conditionFailed(err) {
			return entities.Thread{}, apperrors.NewConflictError(fmt.Sprintf("graph %q already exists", name))
		}
		return entities.Thread{}, fmt.Errorf("failed to create graph: %w", err)
	}

	r.logger.Debug("Graph created",
		zap.String("user_id", userID),
		zap.String("graph_id", thread.ID),
		zap.String("name", name))
	return thread, nil
}

// GetGraph returns the snapshot of a graph by id
func (r *GraphRepository) GetGraph(ctx context.Context, userID, graphID string) (aggregates.GraphData, error) {
	item, err := r.getGraphItem(ctx, userID, graphID)
	if err != nil {
		return aggregates.GraphData{}, err
	}
	return decodeData(item.Data)
}

// ReplaceGraph overwrites a graph's snapshot
func (r *GraphRepository) ReplaceGraph(ctx context.Context, userID, graphName string, data aggregates.GraphData) error {
	data = data.Normalize()
	if err := data.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	graphID, err := r.resolve(ctx, userID, graphName)
	if err != nil {
		return err
	}
	err = r.writeData(ctx, userID, graphID, data, expression.Name("PK").AttributeExists())
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return apperrors.NewNotFoundError("graph")
	}
	return err
}

// MergeGraph adds nodes and edges to a graph and returns the result. The
// write is conditioned on the version that was read; a concurrent writer
// causes a re-read.
func (r *GraphRepository) MergeGraph(ctx context.Context, userID, graphName string, addition aggregates.GraphData) (aggregates.GraphData, error) {
	graphID, err := r.resolve(ctx, userID, graphName)
	if err != nil {
		return aggregates.GraphData{}, err
	}

	for attempt := 1; ; attempt++ {
		item, err := r.getGraphItem(ctx, userID, graphID)
		if err != nil {
			return aggregates.GraphData{}, err
		}
		current, err := decodeData(item.Data)
		if err != nil {
			return aggregates.GraphData{}, err
		}

		merged := aggregates.Merge(current, addition.Normalize())
		if err := merged.Validate(); err != nil {
			return aggregates.GraphData{}, apperrors.NewValidationError(err.Error())
		}

		err = r.writeData(ctx, userID, graphID, merged, expression.Name("Version").Equal(expression.Value(item.Version)))
		if err == nil {
			return merged, nil
		}
		var ccf *types.ConditionalCheckFailedException
		if !errors.As(err, &ccf) || attempt >= maxMergeAttempts {
			return aggregates.GraphData{}, err
		}
		r.logger.Debug("Graph changed during merge, retrying",
			zap.String("graph_id", graphID),
			zap.Int("attempt", attempt))
	}
}

// writeData stores data as the graph's snapshot and bumps its version
func (r *GraphRepository) writeData(ctx context.Context, userID, graphID string, data aggregates.GraphData, condition expression.ConditionBuilder) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	update := expression.Set(expression.Name("Data"), expression.Value(string(raw))).
		Set(expression.Name("UpdatedAt"), expression.Value(utils.NowRFC3339())).
		Add(expression.Name("Version"), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(condition).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       r.key(userID, graphPrefix+graphID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return err
		}
		return fmt.Errorf("failed to update graph: %w", err)
	}
	return nil
}

func (r *GraphRepository) getGraphItem(ctx context.Context, userID, graphID string) (graphItem, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            r.key(userID, graphPrefix+graphID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return graphItem{}, fmt.Errorf("failed to get graph: %w", err)
	}
	if result.Item == nil {
		return graphItem{}, apperrors.NewNotFoundError("graph")
	}

	var item graphItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return graphItem{}, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return item, nil
}

// resolve finds a graph id by name, then accepts graphName as an id
func (r *GraphRepository) resolve(ctx context.Context, userID, graphName string) (string, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            r.key(userID, namePrefix+graphName),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve graph name: %w", err)
	}
	if result.Item != nil {
		var item nameItem
		if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
			return "", fmt.Errorf("failed to unmarshal graph name: %w", err)
		}
		return item.GraphID, nil
	}

	// not a name, try it as an id
	if _, err := r.getGraphItem(ctx, userID, graphName); err != nil {
		return "", err
	}
	return graphName, nil
}

func decodeData(raw string) (aggregates.GraphData, error) {
	if raw == "" {
		return aggregates.EmptyGraphData(), nil
	}
	var data aggregates.GraphData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return aggregates.GraphData{}, fmt.Errorf("failed to decode graph data: %w", err)
	}
	return data.Normalize(), nil
}

// conditionFailed reports whether err is a canceled transaction in which
// at least one item failed its condition check. Cancellations caused only
// by throttling or conflicting transactions are not.
func conditionFailed(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, reason := range canceled.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
