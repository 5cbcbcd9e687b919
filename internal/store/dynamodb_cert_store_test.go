package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

// fakeDynamoDB is a single-table fake keyed on serial_number. Scan returns
// one item per page to exercise pagination.
type fakeDynamoDB struct {
	items map[string]map[string]types.AttributeValue
	keys  []string
	err   error
}

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{items: map[string]map[string]types.AttributeValue{}}
}

func serialOf(item map[string]types.AttributeValue) string {
	return item["serial_number"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[serialOf(params.Key)]}, nil
}

func (f *fakeDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	serial := serialOf(params.Item)
	if strings.Contains(aws.ToString(params.ConditionExpression), "attribute_not_exists(serial_number)") {
		if _, exists := f.items[serial]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	f.items[serial] = params.Item
	f.keys = append(f.keys, serial)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	start := 0
	if params.ExclusiveStartKey != nil {
		last := serialOf(params.ExclusiveStartKey)
		for i, k := range f.keys {
			if k == last {
				start = i + 1
			}
		}
	}
	if start >= len(f.keys) {
		return &dynamodb.ScanOutput{}, nil
	}

	key := f.keys[start]
	out := &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{f.items[key]}}
	if start+1 < len(f.keys) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"serial_number": &types.AttributeValueMemberS{Value: key},
		}
	}
	return out, nil
}

func TestDynamoDBCertificateStore(t *testing.T) {
	ctx := context.Background()
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	cert := &CertMetadata{
		SerialNumber: "0abc",
		CommonName:   "example.com",
		IssuerDN:     "CN=Test CA",
		DNSNames:     []string{"*.example.com", "example.com"},
		Fingerprint:  "fp",
		IssuedAt:     issued,
		ExpiresAt:    issued.Add(365 * 24 * time.Hour),
		TTL:          1234,
	}

	t.Run("register and get", func(t *testing.T) {
		s := NewDynamoDBCertificateStore(newFakeDynamoDB(), "tlsca_certificates")

		require.NoError(t, s.Register(ctx, cert))

		got, err := s.Get(ctx, "0abc")
		require.NoError(t, err)
		require.Equal(t, cert, got)
	})

	t.Run("duplicate serial", func(t *testing.T) {
		s := NewDynamoDBCertificateStore(newFakeDynamoDB(), "tlsca_certificates")

		require.NoError(t, s.Register(ctx, cert))
		require.ErrorIs(t, s.Register(ctx, cert), ErrCertAlreadyExists)
	})

	t.Run("not found", func(t *testing.T) {
		s := NewDynamoDBCertificateStore(newFakeDynamoDB(), "tlsca_certificates")

		_, err := s.Get(ctx, "missing")
		require.ErrorIs(t, err, ErrCertNotFound)
	})

	t.Run("client errors are wrapped", func(t *testing.T) {
		fake := newFakeDynamoDB()
		fake.err = errors.New("boom")
		s := NewDynamoDBCertificateStore(fake, "tlsca_certificates")

		require.ErrorContains(t, s.Register(ctx, cert), "boom")
		_, err := s.Get(ctx, "0abc")
		require.ErrorContains(t, err, "boom")
	})

	t.Run("list pages through the table", func(t *testing.T) {
		s := NewDynamoDBCertificateStore(newFakeDynamoDB(), "tlsca_certificates")

		for i, serial := range []string{"03", "01", "02"} {
			c := *cert
			c.SerialNumber = serial
			c.IssuedAt = issued.Add(time.Duration(i) * time.Minute)
			if serial == "02" {
				c.IssuerDN = "CN=Other CA"
			}
			require.NoError(t, s.Register(ctx, &c))
		}

		all, err := s.List(ctx, ListCertificatesOptions{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, "03", all[0].SerialNumber)

		filtered, err := s.List(ctx, ListCertificatesOptions{IssuerDN: "CN=Test CA", Limit: 1})
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		require.Equal(t, "03", filtered[0].SerialNumber)
	})
}
