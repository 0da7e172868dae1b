package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ManagerUploaderAPI is an interface used to mock API calls made to the aws S3 manager uploader
type ManagerUploaderAPI interface {
	Upload(
		ctx context.Context,
		input *s3.PutObjectInput,
		opts ...func(*manager.Uploader),
	) (*manager.UploadOutput, error)
}

// Store uploads the output files of a dispatched query to a bucket
// so they survive the machine the query ran on
type Store struct {
	UploaderAPI ManagerUploaderAPI
	Bucket      string
}

// NewStore creates a Store uploading to the given bucket
func NewStore(cfg aws.Config, bucket string) *Store {
	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &Store{
		UploaderAPI: manager.NewUploader(s3Client),
		Bucket:      bucket,
	}
}

// SaveRun uploads the stdout and stderr files of one dispatch,
// keyed under the job id
func (s *Store) SaveRun(ctx context.Context, jobID string, stdoutPath string, stderrPath string) error {
	for _, path := range []string{stdoutPath, stderrPath} {
		if err := s.saveFile(ctx, jobID, path); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) saveFile(ctx context.Context, jobID string, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	key := fmt.Sprintf("jobs/%s/%s", jobID, filepath.Base(path))
	_, err = s.UploaderAPI.Upload(ctx, &s3.PutObjectInput{
		Bucket: &s.Bucket,
		Key:    &key,
		Body:   file,
	})
	if err != nil {
		return err
	}

	return nil
}
