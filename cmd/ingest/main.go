// Package main provides the catalog ingestion tool.
//
// It lists activity images in an S3-compatible bucket, derives categories
// from the top-level folders, and writes the catalog manifest JSON that
// the server loads (and hot-reloads) at runtime.
//
// Usage:
//
//	KIDOBRA_S3_ACCESS_KEY=... KIDOBRA_S3_SECRET_KEY=... \
//	  go run ./cmd/ingest \
//	  --endpoint s3.amazonaws.com \
//	  --bucket kidobra-activities \
//	  --public-url https://cdn.kidobra.app \
//	  --output ~/Kidobra/data/catalog.json
package main

import (
	"context"
	"encoding/json/v2"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kidobra/kidobra-server/internal/catalog"
	"github.com/kidobra/kidobra-server/internal/domain"
	"github.com/kidobra/kidobra-server/internal/normalize"
)

var (
	endpoint  = flag.String("endpoint", "s3.amazonaws.com", "S3-compatible endpoint")
	bucket    = flag.String("bucket", "", "Bucket holding the activity images")
	prefix    = flag.String("prefix", "atividades/", "Key prefix to scan inside the bucket")
	publicURL = flag.String("public-url", "", "Public base URL serving the bucket contents")
	output    = flag.String("output", "", "Path to write the manifest JSON")
	useSSL    = flag.Bool("ssl", true, "Use TLS when talking to the endpoint")
)

// imageExtensions are the object suffixes treated as activity images.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

func main() {
	flag.Parse()

	if *bucket == "" || *publicURL == "" || *output == "" {
		flag.Usage()
		os.Exit(2)
	}

	accessKey := os.Getenv("KIDOBRA_S3_ACCESS_KEY")
	secretKey := os.Getenv("KIDOBRA_S3_SECRET_KEY")
	if accessKey == "" || secretKey == "" {
		log.Fatal("KIDOBRA_S3_ACCESS_KEY and KIDOBRA_S3_SECRET_KEY must be set")
	}

	client, err := minio.New(*endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: *useSSL,
	})
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	ctx := context.Background()

	fmt.Printf("Scanning s3://%s/%s\n", *bucket, *prefix)

	manifest, scanned, err := buildManifest(ctx, client, *bucket, *prefix, *publicURL)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	if err := manifest.Validate(); err != nil {
		log.Fatalf("Built an invalid manifest: %v", err)
	}

	if err := writeManifest(manifest, *output); err != nil {
		log.Fatalf("Failed to write manifest: %v", err)
	}

	fmt.Printf("Wrote %s: %d categories, %d activities (%d objects scanned)\n",
		*output, len(manifest.Categories), len(manifest.Activities), scanned)
}

// buildManifest lists the bucket and groups images into categories by
// their top-level folder. Folder and file names become stable slugs so
// re-running ingestion never changes existing activity ids.
func buildManifest(ctx context.Context, client *minio.Client, bucket, prefix, publicURL string) (*catalog.Manifest, int, error) {
	type folderEntry struct {
		name  string
		files []string // object keys
	}
	folders := make(map[string]*folderEntry)
	scanned := 0

	for obj := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, scanned, obj.Err
		}
		scanned++

		key := strings.TrimPrefix(obj.Key, prefix)
		key = strings.TrimPrefix(key, "/")

		folder, file, ok := strings.Cut(key, "/")
		if !ok || file == "" {
			continue // object at the bucket root, not inside a category folder
		}
		if strings.Contains(file, "/") {
			continue // nested deeper than category/file
		}
		if !imageExtensions[strings.ToLower(path.Ext(file))] {
			continue
		}

		entry, exists := folders[folder]
		if !exists {
			entry = &folderEntry{name: folder}
			folders[folder] = entry
		}
		entry.files = append(entry.files, obj.Key)
	}

	folderNames := make([]string, 0, len(folders))
	for name := range folders {
		folderNames = append(folderNames, name)
	}
	sort.Strings(folderNames)

	m := &catalog.Manifest{}
	for i, folder := range folderNames {
		entry := folders[folder]
		sort.Strings(entry.files)

		categoryID := normalize.Filename(folder)
		category := domain.Category{
			ID:    categoryID,
			Name:  folder,
			Order: i + 1,
		}

		for j, objectKey := range entry.files {
			file := path.Base(objectKey)
			stem := strings.TrimSuffix(file, path.Ext(file))
			imageURL := publicURL + "/" + escapeKey(objectKey)

			m.Activities = append(m.Activities, domain.Activity{
				ID:         categoryID + "_" + normalize.Filename(stem),
				Order:      j + 1,
				CategoryID: categoryID,
				Folder:     folder,
				File:       file,
				ImageURL:   imageURL,
			})

			// First image in the folder doubles as the category cover.
			if category.ImageURL == "" {
				category.ImageURL = imageURL
			}
		}

		m.Categories = append(m.Categories, category)
	}

	return m, scanned, nil
}

// escapeKey escapes each path segment of an object key for use in a URL.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// writeManifest writes the manifest atomically (temp file + rename) so
// the server's watcher never reads a half-written file.
func writeManifest(m *catalog.Manifest, outputPath string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, outputPath)
}
