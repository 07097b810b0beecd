package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
)

// ObjectStoreAPI is the subset of the DynamoDB client the object-store
// driver uses. *dynamodb.Client satisfies it.
type ObjectStoreAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ObjectStoreDriver persists records as DynamoDB items in a single
// table partitioned by obj:<entity>. Each item carries the record as a
// nested document attribute.
type ObjectStoreDriver struct {
	client ObjectStoreAPI
	table  string
}

// NewObjectStoreDriver creates a DynamoDB-backed driver over the given
// table. The table's key schema must be pk (HASH) + sk (RANGE), both
// strings.
func NewObjectStoreDriver(client ObjectStoreAPI, table string) *ObjectStoreDriver {
	return &ObjectStoreDriver{client: client, table: table}
}

func (d *ObjectStoreDriver) Kind() Kind { return KindObjectStore }

func (d *ObjectStoreDriver) Read(ctx context.Context, t Target) ([]map[string]any, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: t.Location()},
		},
	}

	var records []map[string]any
	paginator := dynamodb.NewQueryPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			record, err := unmarshalObjectItem(item)
			if err != nil {
				return nil, err
			}
			CastRecord(record, t.Types)
			records = append(records, record)
		}
	}
	return records, nil
}

func (d *ObjectStoreDriver) Append(ctx context.Context, t Target, record map[string]any) error {
	item, err := d.marshalItem(t, record)
	if err != nil {
		return err
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	return err
}

func (d *ObjectStoreDriver) Replace(ctx context.Context, t Target, records []map[string]any) error {
	existing, err := d.Read(ctx, t)
	if err != nil {
		return err
	}
	for _, record := range existing {
		key, ok := t.Key(record)
		if !ok {
			continue
		}
		if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(d.table),
			Key: map[string]types.AttributeValue{
				"pk": &types.AttributeValueMemberS{Value: t.Location()},
				"sk": &types.AttributeValueMemberS{Value: key},
			},
		}); err != nil {
			return err
		}
	}
	for _, record := range records {
		if err := d.Append(ctx, t, record); err != nil {
			return err
		}
	}
	return nil
}

func (d *ObjectStoreDriver) Snapshot(ctx context.Context, t Target) (*Snapshot, error) {
	records, err := d.Read(ctx, t)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Exists: true, Records: records}, nil
}

func (d *ObjectStoreDriver) Restore(ctx context.Context, t Target, snap *Snapshot) error {
	var records []map[string]any
	if snap != nil {
		records = snap.Records
	}
	return d.Replace(ctx, t, records)
}

func (d *ObjectStoreDriver) marshalItem(t Target, record map[string]any) (map[string]types.AttributeValue, error) {
	key, ok := t.Key(record)
	if !ok {
		return nil, ErrMissingKey
	}
	doc, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, errors.Wrap(err, "marshal record")
	}
	return map[string]types.AttributeValue{
		"pk":  &types.AttributeValueMemberS{Value: t.Location()},
		"sk":  &types.AttributeValueMemberS{Value: key},
		"doc": &types.AttributeValueMemberM{Value: doc},
	}, nil
}

func unmarshalObjectItem(item map[string]types.AttributeValue) (map[string]any, error) {
	docAttr, ok := item["doc"].(*types.AttributeValueMemberM)
	if !ok {
		return nil, errors.New("strata: object item has no document attribute")
	}
	var record map[string]any
	if err := attributevalue.UnmarshalMap(docAttr.Value, &record); err != nil {
		return nil, errors.Wrap(err, "unmarshal record")
	}
	return record, nil
}
