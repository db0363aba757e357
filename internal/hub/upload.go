package hub

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"go.uber.org/zap"
)

const (
	uploadModeLFS     = "lfs"
	uploadModeRegular = "regular"

	// preupload inspects the head of a file to pick its upload mode
	sampleSize = 512

	lfsMediaType = "application/vnd.git-lfs+json"
)

// LFSError is an object-level rejection from the LFS batch endpoint, for example a file
// over the repository's size limit. It is never retried.
type LFSError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *LFSError) Error() string {
	return fmt.Sprintf("hub lfs: object rejected (%d): %s", e.Code, e.Message)
}

type commitLine struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type commitHeader struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

type commitFile struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
}

type commitLFSFile struct {
	Path string `json:"path"`
	Algo string `json:"algo"`
	OID  string `json:"oid"`
	Size int    `json:"size"`
}

// Upload replaces filename in the dataset repository with content in a single commit.
// The hub decides per file whether the bytes travel inline or through LFS storage.
func (c *Client) Upload(ctx context.Context, repoID, filename string, content []byte, message string) error {
	mode, err := c.preupload(ctx, repoID, filename, content)
	if err != nil {
		return err
	}

	var file commitLine
	switch mode {
	case uploadModeLFS:
		obj, err := c.uploadLFS(ctx, repoID, filename, content)
		if err != nil {
			return err
		}
		file = commitLine{Key: "lfsFile", Value: commitLFSFile{Path: filename, Algo: "sha256", OID: obj.OID, Size: obj.Size}}
	default:
		file = commitLine{Key: "file", Value: commitFile{
			Content:  base64.StdEncoding.EncodeToString(content),
			Path:     filename,
			Encoding: "base64",
		}}
	}
	return c.commit(ctx, repoID, filename, message, file)
}

func (c *Client) commit(ctx context.Context, repoID, filename, message string, file commitLine) error {
	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	for _, line := range []commitLine{{Key: "header", Value: commitHeader{Summary: message}}, file} {
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode commit payload: %w", err)
		}
	}

	_, err := c.send(ctx, "commit", filename, request{
		method: http.MethodPost,
		url:    fmt.Sprintf("%s/api/datasets/%s/commit/%s", c.endpoint, repoID, url.PathEscape(c.revision)),
		body:   payload.Bytes(),
		header: map[string]string{"Content-Type": "application/x-ndjson"},
	})
	return err
}

type preuploadFile struct {
	Path   string `json:"path"`
	Sample string `json:"sample"`
	Size   int    `json:"size"`
}

type preuploadRequest struct {
	Files []preuploadFile `json:"files"`
}

type preuploadResponse struct {
	Files []struct {
		Path       string `json:"path"`
		UploadMode string `json:"uploadMode"`
	} `json:"files"`
}

// preupload asks the hub how filename must be uploaded.
func (c *Client) preupload(ctx context.Context, repoID, filename string, content []byte) (string, error) {
	sample := content
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	body, err := json.Marshal(preuploadRequest{Files: []preuploadFile{{
		Path:   filename,
		Sample: base64.StdEncoding.EncodeToString(sample),
		Size:   len(content),
	}}})
	if err != nil {
		return "", fmt.Errorf("failed to encode preupload request: %w", err)
	}

	resp, err := c.send(ctx, "preupload", filename, request{
		method: http.MethodPost,
		url:    fmt.Sprintf("%s/api/datasets/%s/preupload/%s", c.endpoint, repoID, url.PathEscape(c.revision)),
		body:   body,
		header: map[string]string{"Content-Type": "application/json"},
	})
	if err != nil {
		return "", err
	}

	var out preuploadResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return "", fmt.Errorf("failed to decode preupload response: %w", err)
	}
	for _, f := range out.Files {
		if f.Path == filename && f.UploadMode == uploadModeLFS {
			return uploadModeLFS, nil
		}
	}
	return uploadModeRegular, nil
}

type lfsObject struct {
	OID  string `json:"oid"`
	Size int    `json:"size"`
}

type lfsRef struct {
	Name string `json:"name"`
}

type lfsBatchRequest struct {
	Operation string      `json:"operation"`
	Transfers []string    `json:"transfers"`
	Objects   []lfsObject `json:"objects"`
	HashAlgo  string      `json:"hash_algo"`
	Ref       lfsRef      `json:"ref"`
}

type lfsAction struct {
	Href   string            `json:"href"`
	Header map[string]string `json:"header"`
}

type lfsBatchObject struct {
	OID     string               `json:"oid"`
	Size    int                  `json:"size"`
	Actions map[string]lfsAction `json:"actions"`
	Error   *LFSError            `json:"error"`
}

type lfsBatchResponse struct {
	Transfer string           `json:"transfer"`
	Objects  []lfsBatchObject `json:"objects"`
}

type lfsPart struct {
	PartNumber int    `json:"partNumber"`
	ETag       string `json:"etag"`
}

type lfsCompletion struct {
	OID   string    `json:"oid"`
	Parts []lfsPart `json:"parts"`
}

// uploadLFS stores content as an LFS object and returns its pointer.
// An object the hub already holds is not sent again.
func (c *Client) uploadLFS(ctx context.Context, repoID, filename string, content []byte) (lfsObject, error) {
	sum := sha256.Sum256(content)
	obj := lfsObject{OID: hex.EncodeToString(sum[:]), Size: len(content)}

	body, err := json.Marshal(lfsBatchRequest{
		Operation: "upload",
		Transfers: []string{"basic", "multipart"},
		Objects:   []lfsObject{obj},
		HashAlgo:  "sha256",
		Ref:       lfsRef{Name: c.revision},
	})
	if err != nil {
		return obj, fmt.Errorf("failed to encode lfs batch request: %w", err)
	}
	resp, err := c.send(ctx, "lfs batch", filename, request{
		method: http.MethodPost,
		url:    fmt.Sprintf("%s/datasets/%s.git/info/lfs/objects/batch", c.endpoint, repoID),
		body:   body,
		header: map[string]string{"Accept": lfsMediaType, "Content-Type": lfsMediaType},
	})
	if err != nil {
		return obj, err
	}

	var batch lfsBatchResponse
	if err := json.Unmarshal(resp.body, &batch); err != nil {
		return obj, fmt.Errorf("failed to decode lfs batch response: %w", err)
	}
	if len(batch.Objects) != 1 {
		return obj, fmt.Errorf("lfs batch for %s returned %d objects", filename, len(batch.Objects))
	}
	got := batch.Objects[0]
	if got.Error != nil {
		return obj, got.Error
	}

	upload, ok := got.Actions["upload"]
	if !ok {
		c.logger.Debug("LFS object already stored", zap.String("file", filename), zap.String("oid", obj.OID))
		return obj, nil
	}

	if batch.Transfer == "multipart" {
		err = c.putMultipart(ctx, filename, obj.OID, upload, content)
	} else {
		_, err = c.send(ctx, "lfs upload", filename, request{
			method:    http.MethodPut,
			url:       upload.Href,
			body:      content,
			header:    upload.Header,
			anonymous: true,
		})
	}
	if err != nil {
		return obj, err
	}

	if verify, ok := got.Actions["verify"]; ok {
		body, err := json.Marshal(obj)
		if err != nil {
			return obj, fmt.Errorf("failed to encode lfs verify request: %w", err)
		}
		header := map[string]string{"Accept": lfsMediaType, "Content-Type": lfsMediaType}
		for k, v := range verify.Header {
			header[k] = v
		}
		if _, err := c.send(ctx, "lfs verify", filename, request{
			method: http.MethodPost,
			url:    verify.Href,
			body:   body,
			header: header,
		}); err != nil {
			return obj, err
		}
	}

	c.logger.Info("Uploaded LFS object",
		zap.String("file", filename),
		zap.String("oid", obj.OID),
		zap.Int("size", obj.Size),
		zap.String("transfer", batch.Transfer))
	return obj, nil
}

// putMultipart sends content in chunk_size parts to the presigned part URLs in the
// upload header, then posts the collected ETags to the completion URL.
func (c *Client) putMultipart(ctx context.Context, filename, oid string, upload lfsAction, content []byte) error {
	chunkSize, err := strconv.Atoi(upload.Header["chunk_size"])
	if err != nil || chunkSize <= 0 {
		return fmt.Errorf("lfs multipart upload for %s: invalid chunk_size %q", filename, upload.Header["chunk_size"])
	}

	type partURL struct {
		n   int
		url string
	}
	var urls []partURL
	for k, v := range upload.Header {
		if n, err := strconv.Atoi(k); err == nil && n > 0 {
			urls = append(urls, partURL{n: n, url: v})
		}
	}
	sort.Slice(urls, func(i, j int) bool { return urls[i].n < urls[j].n })

	want := (len(content) + chunkSize - 1) / chunkSize
	if len(urls) != want {
		return fmt.Errorf("lfs multipart upload for %s: got %d part URLs for %d parts", filename, len(urls), want)
	}

	parts := make([]lfsPart, 0, len(urls))
	for i, part := range urls {
		end := min((i+1)*chunkSize, len(content))
		resp, err := c.send(ctx, "lfs part "+strconv.Itoa(part.n), filename, request{
			method:    http.MethodPut,
			url:       part.url,
			body:      content[i*chunkSize : end],
			anonymous: true,
		})
		if err != nil {
			return err
		}
		parts = append(parts, lfsPart{PartNumber: i + 1, ETag: resp.header.Get("ETag")})
	}

	body, err := json.Marshal(lfsCompletion{OID: oid, Parts: parts})
	if err != nil {
		return fmt.Errorf("failed to encode lfs completion: %w", err)
	}
	_, err = c.send(ctx, "lfs complete", filename, request{
		method:    http.MethodPost,
		url:       upload.Href,
		body:      body,
		header:    map[string]string{"Accept": lfsMediaType, "Content-Type": lfsMediaType},
		anonymous: true,
	})
	return err
}
