package letters

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/digitorus/pdfsign/sign"

	"github.com/pzse-platform/iebc-backend/config"
)

// Signer applies the stored certificate/private-key pair as a digital
// signature over a rendered PDF.
type Signer struct {
	cert   *x509.Certificate
	signer crypto.Signer
}

func NewSigner(cfg config.PDFConfig) (*Signer, error) {
	cert, err := loadCertificate(cfg.CertificatePath)
	if err != nil {
		return nil, err
	}
	key, err := loadPrivateKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	return &Signer{cert: cert, signer: key}, nil
}

// SignFile signs inputPath into outputPath as a certification signature
// covering the whole document.
func (s *Signer) SignFile(inputPath, outputPath string) error {
	err := sign.SignFile(inputPath, outputPath, sign.SignData{
		Signature: sign.SignDataSignature{
			Info: sign.SignDataSignatureInfo{
				Name:     "PZSE Engineering",
				Location: "United States",
				Reason:   "IEBC certification letter",
				Date:     time.Now(),
			},
			CertType:   sign.CertificationSignature,
			DocMDPPerm: sign.AllowFillingExistingFormFieldsAndSignaturesPerms,
		},
		DigestAlgorithm: crypto.SHA256,
		Signer:          s.signer,
		Certificate:     s.cert,
	})
	if err != nil {
		return fmt.Errorf("sign pdf: %w", err)
	}
	return nil
}

func loadCertificate(path string) (*x509.Certificate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("certificate %s: no PEM block", path)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	return cert, nil
}

func loadPrivateKey(path string) (crypto.Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("private key %s: no PEM block", path)
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if signer, ok := key.(crypto.Signer); ok {
			return signer, nil
		}
		return nil, fmt.Errorf("private key %s: not a signer", path)
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}
