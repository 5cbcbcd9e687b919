package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the registry.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

var _ DynamoDBAPI = (*dynamodb.Client)(nil)

// DynamoDBCertificateStore is a DynamoDB implementation of CertificateStore.
// The table is keyed on serial_number.
type DynamoDBCertificateStore struct {
	client    DynamoDBAPI
	tableName string
}

// NewDynamoDBCertificateStore creates a new DynamoDB certificate store
func NewDynamoDBCertificateStore(client DynamoDBAPI, tableName string) *DynamoDBCertificateStore {
	return &DynamoDBCertificateStore{
		client:    client,
		tableName: tableName,
	}
}

// Get retrieves certificate metadata by serial number
func (s *DynamoDBCertificateStore) Get(ctx context.Context, serialNumber string) (*CertMetadata, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"serial_number": &types.AttributeValueMemberS{Value: serialNumber},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}

	if result.Item == nil {
		return nil, ErrCertNotFound
	}

	return unmarshalCert(result.Item)
}

// Register stores certificate metadata
func (s *DynamoDBCertificateStore) Register(ctx context.Context, cert *CertMetadata) error {
	// Use ConditionExpression to prevent duplicates
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                marshalCert(cert),
		ConditionExpression: aws.String("attribute_not_exists(serial_number)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrCertAlreadyExists
		}
		return fmt.Errorf("failed to register certificate: %w", err)
	}

	log.Debug().
		Str("serial_number", cert.SerialNumber).
		Str("common_name", cert.CommonName).
		Str("fingerprint", cert.Fingerprint).
		Msg("certificate registered")

	return nil
}

// List scans the table and returns certificates oldest first
func (s *DynamoDBCertificateStore) List(ctx context.Context, opts ListCertificatesOptions) ([]*CertMetadata, error) {
	var (
		result   []*CertMetadata
		startKey map[string]types.AttributeValue
	)

	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificates: %w", err)
		}

		for _, item := range out.Items {
			cert, err := unmarshalCert(item)
			if err != nil {
				log.Error().Err(err).Msg("failed to unmarshal certificate, skipping")
				continue
			}
			if matchesFilter(cert, opts) {
				result = append(result, cert)
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sortByIssued(result)
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}

func marshalCert(cert *CertMetadata) map[string]types.AttributeValue {
	dnsNames := make([]types.AttributeValue, 0, len(cert.DNSNames))
	for _, name := range cert.DNSNames {
		dnsNames = append(dnsNames, &types.AttributeValueMemberS{Value: name})
	}

	return map[string]types.AttributeValue{
		"serial_number": &types.AttributeValueMemberS{Value: cert.SerialNumber},
		"common_name":   &types.AttributeValueMemberS{Value: cert.CommonName},
		"issuer_dn":     &types.AttributeValueMemberS{Value: cert.IssuerDN},
		"dns_names":     &types.AttributeValueMemberL{Value: dnsNames},
		"fingerprint":   &types.AttributeValueMemberS{Value: cert.Fingerprint},
		"is_ca":         &types.AttributeValueMemberBOOL{Value: cert.IsCA},
		"issued_at":     &types.AttributeValueMemberS{Value: cert.IssuedAt.UTC().Format(time.RFC3339)},
		"expires_at":    &types.AttributeValueMemberS{Value: cert.ExpiresAt.UTC().Format(time.RFC3339)},
		"ttl":           &types.AttributeValueMemberN{Value: strconv.FormatInt(cert.TTL, 10)},
	}
}

func unmarshalCert(item map[string]types.AttributeValue) (*CertMetadata, error) {
	cert := &CertMetadata{}

	var err error
	if cert.SerialNumber, err = stringAttr(item, "serial_number"); err != nil {
		return nil, err
	}
	if cert.CommonName, err = stringAttr(item, "common_name"); err != nil {
		return nil, err
	}
	if cert.IssuerDN, err = stringAttr(item, "issuer_dn"); err != nil {
		return nil, err
	}
	if cert.Fingerprint, err = stringAttr(item, "fingerprint"); err != nil {
		return nil, err
	}
	if cert.IssuedAt, err = timeAttr(item, "issued_at"); err != nil {
		return nil, err
	}
	if cert.ExpiresAt, err = timeAttr(item, "expires_at"); err != nil {
		return nil, err
	}

	if v, ok := item["is_ca"].(*types.AttributeValueMemberBOOL); ok {
		cert.IsCA = v.Value
	}

	if v, ok := item["ttl"].(*types.AttributeValueMemberN); ok {
		ttl, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("attribute ttl: %w", err)
		}
		cert.TTL = ttl
	}

	if v, ok := item["dns_names"].(*types.AttributeValueMemberL); ok {
		for _, av := range v.Value {
			if s, ok := av.(*types.AttributeValueMemberS); ok {
				cert.DNSNames = append(cert.DNSNames, s.Value)
			}
		}
	}

	return cert, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) (string, error) {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %s missing or not a string", name)
	}
	return v.Value, nil
}

func timeAttr(item map[string]types.AttributeValue, name string) (time.Time, error) {
	s, err := stringAttr(item, name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("attribute %s: %w", name, err)
	}
	return t, nil
}
