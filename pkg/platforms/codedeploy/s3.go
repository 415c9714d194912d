package codedeploy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
)

// S3Store implements engine.ObjectStore for revision bundle uploads.
type S3Store struct {
	runner   engine.CommandRunner
	region   string
	extraEnv []string
}

// NewS3Store creates an object store client for the given region.
func NewS3Store(runner engine.CommandRunner, region string) *S3Store {
	return &S3Store{runner: runner, region: region}
}

// WithEnv returns a copy of the store that appends env to every command.
func (s *S3Store) WithEnv(env []string) *S3Store {
	clone := *s
	clone.extraEnv = env
	return &clone
}

// Put uploads a local bundle to the store location.
func (s *S3Store) Put(ctx context.Context, localPath string, location engine.StoreLocation) error {
	uri := fmt.Sprintf("s3://%s/%s", location.Bucket, location.Key)

	args := []string{"s3", "cp", localPath, uri}
	if s.region != "" {
		args = append(args, "--region", s.region)
	}
	_, err := s.runner.RunOrFail(ctx, engine.Command{
		Name: "aws",
		Args: args,
		Env:  s.extraEnv,
	})
	if err != nil {
		return err
	}

	log.Debug().Str("uri", uri).Msg("bundle uploaded")
	return nil
}
