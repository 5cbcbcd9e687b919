package pki

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
)

// KMSAPI is the subset of the KMS client used for signing.
type KMSAPI interface {
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
}

var _ KMSAPI = (*kms.Client)(nil)

// KMSSigner implements crypto.Signer with an RSA key held in AWS KMS.
// The CA private key never leaves KMS, so no ca.key is ever written when it
// is used.
type KMSSigner struct {
	client    KMSAPI
	keyID     string
	publicKey *rsa.PublicKey
	ctx       context.Context
}

var _ crypto.Signer = (*KMSSigner)(nil)

// NewKMSSigner creates a signer for keyID, which can be a key ID, key ARN,
// alias name, or alias ARN. The key must be an RSA signing key.
func NewKMSSigner(ctx context.Context, client KMSAPI, keyID string) (*KMSSigner, error) {
	out, err := client.GetPublicKey(ctx, &kms.GetPublicKeyInput{
		KeyId: aws.String(keyID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get public key from KMS: %w", err)
	}

	pub, err := x509.ParsePKIXPublicKey(out.PublicKey)
	if err != nil {
		return nil, &ParseError{Kind: "KMS public key", Err: err}
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("KMS key %s: %w (got %T)", keyID, ErrNotRSA, pub)
	}

	return &KMSSigner{
		client:    client,
		keyID:     keyID,
		publicKey: rsaPub,
		ctx:       ctx,
	}, nil
}

// Public returns the public key
func (k *KMSSigner) Public() crypto.PublicKey {
	return k.publicKey
}

// Sign signs a SHA-256 digest using RSASSA-PKCS1-v1_5. KMS returns the raw
// PKCS#1 signature, which is exactly what x509 expects for RSA.
func (k *KMSSigner) Sign(_ io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	if opts.HashFunc() != crypto.SHA256 {
		return nil, fmt.Errorf("KMS signer only supports SHA256, got %v", opts.HashFunc())
	}
	if _, ok := opts.(*rsa.PSSOptions); ok {
		return nil, fmt.Errorf("KMS signer does not support RSA-PSS")
	}

	out, err := k.client.Sign(k.ctx, &kms.SignInput{
		KeyId:            aws.String(k.keyID),
		Message:          digest,
		MessageType:      types.MessageTypeDigest,
		SigningAlgorithm: types.SigningAlgorithmSpecRsassaPkcs1V15Sha256,
	})
	if err != nil {
		return nil, fmt.Errorf("KMS sign operation failed: %w", err)
	}

	return out.Signature, nil
}
