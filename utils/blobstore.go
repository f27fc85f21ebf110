package utils

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alwitt/goutils"
	"github.com/alwitt/onair/common"
	"github.com/apex/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Blobstore storage backend access for one storage location
type Blobstore interface {
	/*
		List fetch the paths of all artifacts stored under a path prefix

			@param ctxt context.Context - execution context
			@param prefix string - path prefix to list under
			@param recursive bool - whether to descend into sub-prefixes
			@returns list of artifact paths
	*/
	List(ctxt context.Context, prefix string, recursive bool) ([]string, error)

	/*
		Delete remove one artifact

			@param ctxt context.Context - execution context
			@param path string - artifact path
	*/
	Delete(ctxt context.Context, path string) error

	/*
		Exists check whether an artifact is present

			@param ctxt context.Context - execution context
			@param path string - artifact path
			@returns whether the artifact exists
	*/
	Exists(ctxt context.Context, path string) (bool, error)
}

/*
NewBlobstoreForLocation define the blobstore client matching a storage location record

	@param location common.StorageLocation - the storage location
	@param s3Config common.S3Config - S3 server config used by "s3" backed locations
	@returns new blobstore client
*/
func NewBlobstoreForLocation(
	location common.StorageLocation, s3Config common.S3Config,
) (Blobstore, error) {
	switch location.Backend {
	case common.StorageBackendLocal:
		return NewLocalBlobstore(location.Path)
	case common.StorageBackendS3:
		return NewS3Blobstore(s3Config, location.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend '%s'", location.Backend)
	}
}

// ====================================================================================
// S3 backend

// s3BlobstoreImpl implements Blobstore against a S3 bucket
type s3BlobstoreImpl struct {
	goutils.Component
	s3     *minio.Client
	bucket string
}

/*
NewS3Blobstore define a new S3 backed blobstore client

	@param config common.S3Config - S3 server config
	@param bucket string - the bucket holding the storage location
	@returns new client
*/
func NewS3Blobstore(config common.S3Config, bucket string) (Blobstore, error) {
	logTags := log.Fields{
		"module":    "utils",
		"component": "s3-blobstore",
		"instance":  config.ServerEndpoint,
		"bucket":    bucket,
	}

	opts := &minio.Options{Secure: config.UseTLS}
	if config.Creds != nil {
		opts.Creds = credentials.NewStaticV4(config.Creds.AccessKey, config.Creds.SecretAccessKey, "")
	}

	// Define the core minio client
	client, err := minio.New(config.ServerEndpoint, opts)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define minio S3 client")
		return nil, err
	}

	return &s3BlobstoreImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		}, s3: client, bucket: bucket,
	}, nil
}

func (s *s3BlobstoreImpl) List(
	ctxt context.Context, prefix string, recursive bool,
) ([]string, error) {
	result := []string{}
	for object := range s.s3.ListObjects(ctxt, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	}) {
		if object.Err != nil {
			return nil, object.Err
		}
		result = append(result, object.Key)
	}
	return result, nil
}

func (s *s3BlobstoreImpl) Delete(ctxt context.Context, path string) error {
	return s.s3.RemoveObject(ctxt, s.bucket, path, minio.RemoveObjectOptions{})
}

func (s *s3BlobstoreImpl) Exists(ctxt context.Context, path string) (bool, error) {
	_, err := s.s3.StatObject(ctxt, s.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ====================================================================================
// Local filesystem backend

// localBlobstoreImpl implements Blobstore against a local directory
type localBlobstoreImpl struct {
	goutils.Component
	baseDir string
}

/*
NewLocalBlobstore define a new local filesystem backed blobstore client

	@param baseDir string - the directory holding the storage location
	@returns new client
*/
func NewLocalBlobstore(baseDir string) (Blobstore, error) {
	logTags := log.Fields{
		"module":    "utils",
		"component": "local-blobstore",
		"instance":  baseDir,
	}

	return &localBlobstoreImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		}, baseDir: baseDir,
	}, nil
}

func (s *localBlobstoreImpl) List(
	ctxt context.Context, prefix string, recursive bool,
) ([]string, error) {
	searchDir := filepath.Join(s.baseDir, filepath.FromSlash(prefix))

	// A missing prefix directory simply holds nothing
	if _, err := os.Stat(searchDir); os.IsNotExist(err) {
		return []string{}, nil
	}

	result := []string{}
	if !recursive {
		entries, err := os.ReadDir(searchDir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			relative, err := filepath.Rel(s.baseDir, filepath.Join(searchDir, entry.Name()))
			if err != nil {
				return nil, err
			}
			result = append(result, filepath.ToSlash(relative))
		}
		return result, nil
	}

	err := filepath.WalkDir(searchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		relative, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		result = append(result, filepath.ToSlash(relative))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *localBlobstoreImpl) Delete(ctxt context.Context, path string) error {
	return os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(path)))
}

func (s *localBlobstoreImpl) Exists(ctxt context.Context, path string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.baseDir, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
