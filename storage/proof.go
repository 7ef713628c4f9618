package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MaxProofSize is the largest decoded screenshot accepted.
const MaxProofSize = 5 << 20

var (
	ErrProofEmpty       = errors.New("proof is empty")
	ErrProofEncoding    = errors.New("proof is not valid base64")
	ErrProofTooLarge    = errors.New("proof exceeds 5 MiB")
	ErrProofUnsupported = errors.New("proof must be a png, jpeg or gif image")
)

var proofExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

type Proof struct {
	Data        []byte
	ContentType string
}

// Ext is the file extension matching the sniffed content type.
func (p *Proof) Ext() string {
	return proofExtensions[p.ContentType]
}

// DecodeProof accepts raw base64 or a data URL and checks the image type by
// sniffing the decoded bytes, not by trusting the declared media type.
func DecodeProof(encoded string) (*Proof, error) {
	s := strings.TrimSpace(encoded)
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, ErrProofEncoding
		}
		s = s[comma+1:]
	}
	if s == "" {
		return nil, ErrProofEmpty
	}
	if base64.StdEncoding.DecodedLen(len(s)) > MaxProofSize+3 {
		return nil, ErrProofTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProofEncoding, err)
		}
	}
	if len(data) == 0 {
		return nil, ErrProofEmpty
	}
	if len(data) > MaxProofSize {
		return nil, ErrProofTooLarge
	}

	contentType := http.DetectContentType(data)
	if _, ok := proofExtensions[contentType]; !ok {
		return nil, ErrProofUnsupported
	}
	return &Proof{Data: data, ContentType: contentType}, nil
}

// ProofKey builds a unique object key for a user's proof.
func ProofKey(userID int, p *Proof) string {
	return path.Join("proofs", fmt.Sprintf("user-%d", userID), uuid.NewString()+p.Ext())
}
