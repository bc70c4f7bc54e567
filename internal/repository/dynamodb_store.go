// Package repository provides the DynamoDB-backed chat log for deployments
// where a local file would not survive the execution environment. All entries
// share one partition; the time-prefixed entry id doubles as the sort key, so
// range queries return chronological order for free.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"wiki-agent/internal/domain"
	"wiki-agent/internal/history"
)

const (
	logPK         = "LOG#CHAT"
	skPrefixEntry = "ENTRY#"
	skMeta        = "META#"
)

// dynamodbAPI is the minimal DynamoDB interface required by Store.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store wraps a DynamoDB table as a bounded FIFO chat log.
type Store struct {
	api       dynamodbAPI
	tableName string
	capacity  int
}

// New creates a new repository Store keeping at most capacity entries.
func New(api dynamodbAPI, tableName string, capacity int) (*Store, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if capacity <= 0 {
		return nil, errors.New("repository: capacity must be positive")
	}
	return &Store{api: api, tableName: tableName, capacity: capacity}, nil
}

// entrySK returns the sort key for an entry.
func entrySK(id string) string {
	return skPrefixEntry + id
}

// Append writes the new entry and, when the log is full, deletes the oldest
// entry in the same transaction so the log never exceeds capacity.
func (s *Store) Append(ctx context.Context, entry domain.ChatHistoryEntry) error {
	if entry.ID == "" {
		return errors.New("repository: Append: entry id is required")
	}

	count, err := s.entryCount(ctx)
	if err != nil {
		return err
	}

	items := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                entryItem(entry),
				ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
			},
		},
	}

	newCount := count + 1
	if newCount > s.capacity {
		oldestSK, err := s.oldestEntrySK(ctx)
		if err != nil {
			return err
		}
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: logPK},
					"SK": &types.AttributeValueMemberS{Value: oldestSK},
				},
			},
		})
		newCount = count
	}

	items = append(items, types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(s.tableName),
			Item:      metaItem(newCount),
		},
	})

	if _, err := s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	}); err != nil {
		return fmt.Errorf("repository: Append transact write: %w", err)
	}
	return nil
}

// Query returns a lazy scan over entries matching match, oldest first. Pages
// are fetched from DynamoDB as the consumer advances.
func (s *Store) Query(ctx context.Context, match history.Match) history.Seq {
	return func(yield func(domain.ChatHistoryEntry, error) bool) {
		var startKey map[string]types.AttributeValue
		for {
			in := &dynamodb.QueryInput{
				TableName:              aws.String(s.tableName),
				KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":pk":     &types.AttributeValueMemberS{Value: logPK},
					":prefix": &types.AttributeValueMemberS{Value: skPrefixEntry},
				},
				ScanIndexForward:  aws.Bool(true),
				ExclusiveStartKey: startKey,
			}

			out, err := s.api.Query(ctx, in)
			if err != nil {
				yield(domain.ChatHistoryEntry{}, fmt.Errorf("repository: Query: %w", err))
				return
			}

			for _, item := range out.Items {
				entry, err := itemToEntry(item)
				if err != nil {
					yield(domain.ChatHistoryEntry{}, &history.CorruptStoreError{Path: s.tableName, Err: err})
					return
				}
				if match != nil && !match(entry) {
					continue
				}
				if !yield(entry, nil) {
					return
				}
			}

			if len(out.LastEvaluatedKey) == 0 {
				return
			}
			startKey = out.LastEvaluatedKey
		}
	}
}

// Len reports the persisted entry count from the metadata record.
func (s *Store) Len(ctx context.Context) (int, error) {
	return s.entryCount(ctx)
}

// entryCount reads the count from the metadata record, 0 when absent.
func (s *Store) entryCount(ctx context.Context) (int, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: logPK},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("repository: entryCount get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return 0, nil
	}

	count, err := intAttr(out.Item, "count")
	if err != nil {
		return 0, fmt.Errorf("repository: entryCount decode count: %w", err)
	}
	return count, nil
}

// oldestEntrySK fetches the sort key of the oldest stored entry.
func (s *Store) oldestEntrySK(ctx context.Context) (string, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: logPK},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixEntry},
		},
		ScanIndexForward: aws.Bool(true),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return "", fmt.Errorf("repository: oldestEntrySK query: %w", err)
	}
	if len(out.Items) == 0 {
		return "", errors.New("repository: oldestEntrySK: log marked full but no entries found")
	}
	sk, err := strAttr(out.Items[0], "SK")
	if err != nil {
		return "", fmt.Errorf("repository: oldestEntrySK: %w", err)
	}
	return sk, nil
}

func entryItem(entry domain.ChatHistoryEntry) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":              &types.AttributeValueMemberS{Value: logPK},
		"SK":              &types.AttributeValueMemberS{Value: entrySK(entry.ID)},
		"id":              &types.AttributeValueMemberS{Value: entry.ID},
		"timestamp":       &types.AttributeValueMemberS{Value: entry.Timestamp},
		"user_id":         &types.AttributeValueMemberS{Value: entry.UserID},
		"username":        &types.AttributeValueMemberS{Value: entry.Username},
		"chatbot_type":    &types.AttributeValueMemberS{Value: entry.Index},
		"user_message":    &types.AttributeValueMemberS{Value: entry.UserMessage},
		"bot_response":    &types.AttributeValueMemberS{Value: entry.BotResponse},
		"message_length":  &types.AttributeValueMemberN{Value: strconv.Itoa(entry.MessageLength)},
		"response_length": &types.AttributeValueMemberN{Value: strconv.Itoa(entry.ResponseLength)},
	}
}

func metaItem(count int) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":    &types.AttributeValueMemberS{Value: logPK},
		"SK":    &types.AttributeValueMemberS{Value: skMeta},
		"count": &types.AttributeValueMemberN{Value: strconv.Itoa(count)},
	}
}

// itemToEntry converts a DynamoDB attribute map to a ChatHistoryEntry.
func itemToEntry(item map[string]types.AttributeValue) (domain.ChatHistoryEntry, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.ChatHistoryEntry{}, err
	}
	ts, err := strAttr(item, "timestamp")
	if err != nil {
		return domain.ChatHistoryEntry{}, err
	}
	userMessage, err := strAttr(item, "user_message")
	if err != nil {
		return domain.ChatHistoryEntry{}, err
	}
	botResponse, err := strAttr(item, "bot_response")
	if err != nil {
		return domain.ChatHistoryEntry{}, err
	}
	userID, _ := strAttr(item, "user_id")     // allow empty
	username, _ := strAttr(item, "username")  // allow empty
	index, _ := strAttr(item, "chatbot_type") // allow empty
	msgLen, _ := intAttr(item, "message_length")
	respLen, _ := intAttr(item, "response_length")

	return domain.ChatHistoryEntry{
		ID:             id,
		Timestamp:      ts,
		UserID:         userID,
		Username:       username,
		Index:          index,
		UserMessage:    userMessage,
		BotResponse:    botResponse,
		MessageLength:  msgLen,
		ResponseLength: respLen,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
