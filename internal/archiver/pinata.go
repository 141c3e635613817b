package archiver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/netx"
)

// PinataStore pins documents through the Pinata API and reads them back
// through a dedicated IPFS gateway.
type PinataStore struct {
	exec       *netx.Executor
	apiURL     string
	gatewayURL string
	token      string
	maxBytes   int64
}

// NewPinataStore rejects a JWT that is already expired. The signature is not
// checked here; Pinata does that. Gateway reads larger than maxBytes fail;
// maxBytes <= 0 disables the limit.
func NewPinataStore(exec *netx.Executor, apiURL, gateway, token string, maxBytes int64) (*PinataStore, error) {
	if err := checkTokenExpiry(token, time.Now()); err != nil {
		return nil, err
	}
	if !strings.Contains(gateway, "://") {
		gateway = "https://" + gateway
	}
	return &PinataStore{
		exec:       exec,
		apiURL:     strings.TrimRight(apiURL, "/"),
		gatewayURL: strings.TrimRight(gateway, "/"),
		token:      token,
		maxBytes:   maxBytes,
	}, nil
}

func checkTokenExpiry(token string, now time.Time) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("pinata jwt: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("pinata jwt: %w", err)
	}
	if exp != nil && exp.Before(now) {
		return fmt.Errorf("pinata jwt: %w", common.ErrTokenExpired)
	}
	return nil
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

func (p *PinataStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	meta, _ := json.Marshal(map[string]string{"name": name})
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	body := buf.Bytes()

	resp, err := p.exec.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/pinning/pinFileToIPFS", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+p.token)
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode pin response: %w", err)
	}
	if _, err := ParseCID(out.IpfsHash); err != nil {
		return "", err
	}
	return out.IpfsHash, nil
}

func (p *PinataStore) Get(ctx context.Context, id string) ([]byte, error) {
	if _, err := ParseCID(id); err != nil {
		return nil, err
	}
	m, err := p.exec.Download(ctx, p.gatewayURL+"/ipfs/"+id, p.maxBytes)
	if err != nil {
		return nil, err
	}
	return m.Data, nil
}
