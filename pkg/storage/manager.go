package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/kisanmart/config"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
)

var (
	mu          sync.RWMutex
	disks       = map[string]Disk{}
	defaultDisk = "local"
)

// Connect boots the local disk and, when S3_BUCKET is set, the s3 disk.
// STORAGE_DISK selects the default.
func Connect(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	disks["local"] = NewLocalDisk(config.StorageLocalRoot(), config.StorageURL())

	if config.StorageS3Bucket() != "" {
		d, err := NewS3Disk(ctx, S3Config{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			URL:      config.StorageS3URL(),
		})
		if err != nil {
			logger.Warn("storage: s3 disk disabled", "error", err)
		} else {
			disks["s3"] = d
		}
	}

	name := config.StorageDefault()
	if _, ok := disks[name]; !ok {
		return fmt.Errorf("storage: default disk %q is not configured", name)
	}
	defaultDisk = name
	return nil
}

// Use returns the named disk.
func Use(name string) (Disk, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := disks[name]
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured", name)
	}
	return d, nil
}

// Default returns the default disk, falling back to a local disk when
// Connect has not run.
func Default() Disk {
	mu.RLock()
	d, ok := disks[defaultDisk]
	mu.RUnlock()
	if ok {
		return d
	}
	return NewLocalDisk(config.StorageLocalRoot(), config.StorageURL())
}

// Register installs d under name and makes it the default.
func Register(name string, d Disk) {
	mu.Lock()
	disks[name] = d
	defaultDisk = name
	mu.Unlock()
}
