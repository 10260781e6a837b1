package parsers

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coffeegist/bofhound/modules/ui"
	"github.com/pkg/errors"
)

const (
	mythicAPIPort   = 7443
	mythicBatchSize = 100

	mythicResponseQuery = `query TaskOutput($limit: Int!, $offset: Int!) {
  response(limit: $limit, offset: $offset, order_by: {id: asc}) {
    id
    response_text: response
  }
}`
)

// MythicDataSource pulls task output straight from a Mythic server's
// GraphQL API instead of reading log files from disk. Task responses
// arrive base64 encoded and each one becomes its own data stream.
type MythicDataSource struct {
	Server   string
	APIToken string

	client *http.Client
}

func NewMythicDataSource(server, apitoken string) *MythicDataSource {
	return &MythicDataSource{
		Server:   server,
		APIToken: apitoken,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				// Mythic ships with a self-signed certificate
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

type mythicResponseRow struct {
	ID           int    `json:"id"`
	ResponseText string `json:"response_text"`
}

type mythicQueryResult struct {
	Data struct {
		Response []mythicResponseRow `json:"response"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (s *MythicDataSource) query(limit, offset int) ([]mythicResponseRow, error) {
	body, err := json.Marshal(map[string]any{
		"query": mythicResponseQuery,
		"variables": map[string]any{
			"limit":  limit,
			"offset": offset,
		},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://%s:%d/graphql/", s.Server, mythicAPIPort)
	request, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("apitoken", s.APIToken)

	response, err := s.client.Do(request)
	if err != nil {
		return nil, errors.Wrap(err, "contacting Mythic")
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		io.Copy(io.Discard, response.Body)
		return nil, fmt.Errorf("Mythic API returned status %v", response.Status)
	}

	var result mythicQueryResult
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "decoding Mythic response")
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("Mythic API error: %v", result.Errors[0].Message)
	}
	return result.Data.Response, nil
}

// Connect verifies the token against the API before any paging starts.
func (s *MythicDataSource) Connect() error {
	ui.Debug().Msg("Logging into Mythic")
	if _, err := s.query(1, 0); err != nil {
		return errors.Wrap(err, "logging into Mythic failed")
	}
	ui.Debug().Msg("Logged into Mythic successfully")
	return nil
}

func (s *MythicDataSource) Streams() ([]DataStream, error) {
	if err := s.Connect(); err != nil {
		return nil, err
	}

	var streams []DataStream
	offset := 0
	for {
		rows, err := s.query(mythicBatchSize, offset)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			streams = append(streams, &MythicDataStream{id: row.ID, payload: row.ResponseText})
		}
		offset += len(rows)
	}
	ui.Debug().Msgf("Fetched %v task outputs from Mythic", len(streams))
	return streams, nil
}

type MythicDataStream struct {
	id      int
	payload string
}

func (s *MythicDataStream) Identifier() string {
	return fmt.Sprintf("mythic_output_%d", s.id)
}

func (s *MythicDataStream) Lines() (LineIterator, error) {
	decoded, err := base64.StdEncoding.DecodeString(s.payload)
	if err != nil {
		// Malformed responses are skipped, not fatal
		ui.Debug().Msgf("Skipping undecodable Mythic output %v: %v", s.id, err)
		return &sliceLineIterator{}, nil
	}
	var lines []string
	for _, line := range strings.Split(string(decoded), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return &sliceLineIterator{lines: lines}, nil
}

type sliceLineIterator struct {
	lines []string
	next  int
}

func (it *sliceLineIterator) Next() (string, bool) {
	if it.next >= len(it.lines) {
		return "", false
	}
	line := it.lines[it.next]
	it.next++
	return line, true
}

func (it *sliceLineIterator) Err() error {
	return nil
}

func (it *sliceLineIterator) Close() error {
	return nil
}
