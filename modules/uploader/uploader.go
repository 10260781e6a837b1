package uploader

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coffeegist/bofhound/modules/ui"
	"github.com/coffeegist/bofhound/modules/version"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client uploads generated JSON files into a BloodHound CE instance
// through its file-upload API, signing each request with the API
// token pair.
type Client struct {
	Server   string
	TokenID  string
	TokenKey string

	httpClient *http.Client
}

func NewClient(server, tokenID, tokenKey string) *Client {
	return &Client{
		Server:   strings.TrimSuffix(server, "/"),
		TokenID:  tokenID,
		TokenKey: tokenKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

type uploadJob struct {
	Data struct {
		ID int `json:"id"`
	} `json:"data"`
}

// Upload pushes every file through one upload job: start, one request
// per file, stop. The server ingests the batch when the job stops.
func (c *Client) Upload(files []string) error {
	if len(files) == 0 {
		return errors.New("no files to upload")
	}

	response, err := c.request(http.MethodPost, "/api/v2/file-upload/start", nil)
	if err != nil {
		return errors.Wrap(err, "starting upload job")
	}
	var job uploadJob
	if err := json.Unmarshal(response, &job); err != nil {
		return errors.Wrap(err, "decoding upload job")
	}
	ui.Debug().Msgf("Started upload job %v on %v", job.Data.ID, c.Server)

	for _, path := range files {
		contents, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "reading %v", path)
		}
		uri := fmt.Sprintf("/api/v2/file-upload/%d", job.Data.ID)
		if _, err := c.request(http.MethodPost, uri, contents); err != nil {
			return errors.Wrapf(err, "uploading %v", path)
		}
		ui.Info().Msgf("Uploaded %v", path)
	}

	uri := fmt.Sprintf("/api/v2/file-upload/%d/stop", job.Data.ID)
	if _, err := c.request(http.MethodPost, uri, nil); err != nil {
		return errors.Wrap(err, "finishing upload job")
	}
	ui.Info().Msgf("Upload job %v submitted for ingestion", job.Data.ID)
	return nil
}

// request signs and sends one API call. The signature chains three
// HMAC-SHA256 rounds keyed on the previous digest: method plus URI,
// then the request date truncated to the hour, then the body.
func (c *Client) request(method, uri string, body []byte) ([]byte, error) {
	digester := hmac.New(sha256.New, []byte(c.TokenKey))
	digester.Write([]byte(method + uri))

	datetime := time.Now().Format(time.RFC3339)
	digester = hmac.New(sha256.New, digester.Sum(nil))
	digester.Write([]byte(datetime[:13]))

	digester = hmac.New(sha256.New, digester.Sum(nil))
	digester.Write(body)

	request, err := http.NewRequest(method, c.Server+uri, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("User-Agent", version.ProgramVersionShort())
	request.Header.Set("Authorization", "bhesignature "+c.TokenID)
	request.Header.Set("RequestDate", datetime)
	request.Header.Set("Signature", base64.StdEncoding.EncodeToString(digester.Sum(nil)))
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("%v %v returned %v: %v", method, uri, response.Status, strings.TrimSpace(string(payload)))
	}
	return payload, nil
}
