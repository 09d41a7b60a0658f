package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log"
	"strings"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

var ErrUnsafeImage = errors.New("image rejected by safe-search screening")

type SafeSearchResult struct {
	Adult    string
	Violence string
	Racy     string
	Spoof    string
	Medical  string
}

func isUnsafeLikelyOrHigher(l string) bool {
	return l == "LIKELY" || l == "VERY_LIKELY"
}

func (r *SafeSearchResult) IsUnsafe() bool {
	return isUnsafeLikelyOrHigher(r.Adult) || isUnsafeLikelyOrHigher(r.Violence) || isUnsafeLikelyOrHigher(r.Racy)
}

// DetectSafeSearch runs Vision SAFE_SEARCH_DETECTION on raw image bytes.
// Uses Application Default Credentials.
func DetectSafeSearch(ctx context.Context, data []byte) (*SafeSearchResult, error) {
	svc, err := vision.NewService(ctx, option.WithScopes(vision.CloudPlatformScope))
	if err != nil {
		return nil, err
	}

	req := &vision.AnnotateImageRequest{
		Image: &vision.Image{
			Content: base64.StdEncoding.EncodeToString(data),
		},
		Features: []*vision.Feature{
			{Type: "SAFE_SEARCH_DETECTION"},
		},
	}

	resp, err := svc.Images.Annotate(&vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{req},
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Responses) == 0 || resp.Responses[0].SafeSearchAnnotation == nil {
		return &SafeSearchResult{}, nil
	}

	ss := resp.Responses[0].SafeSearchAnnotation
	return &SafeSearchResult{
		Adult:    ss.Adult,
		Violence: ss.Violence,
		Racy:     ss.Racy,
		Spoof:    ss.Spoof,
		Medical:  ss.Medical,
	}, nil
}

// ScreenedBlobStore screens image uploads with SafeSearch before handing
// them to the wrapped store. Screening failures are logged and the upload
// proceeds; a positive unsafe verdict rejects the upload so no message ever
// references the object.
type ScreenedBlobStore struct {
	Inner BlobStore
}

var _ BlobStore = (*ScreenedBlobStore)(nil)

func (s *ScreenedBlobStore) Put(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return s.Inner.Put(ctx, path, contentType, r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	ss, err := DetectSafeSearch(ctx, data)
	if err != nil {
		log.Printf("[media] safesearch unavailable for %s, storing unscreened: %v", path, err)
	} else if ss.IsUnsafe() {
		log.Printf("[media] rejected unsafe image path=%s adult=%s violence=%s racy=%s", path, ss.Adult, ss.Violence, ss.Racy)
		return "", ErrUnsafeImage
	}

	return s.Inner.Put(ctx, path, contentType, bytes.NewReader(data))
}
