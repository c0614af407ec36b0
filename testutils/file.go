package testutils

import (
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/obstacles/pointcloud"
)

// WriteCloudFile writes cloud as a binary PCD named name inside dir and fails the test if it
// cannot. It returns the file path.
func WriteCloudFile(t *testing.T, dir, name string, cloud *pointcloud.PointCloud) string {
	t.Helper()
	fn := filepath.Join(dir, name)
	test.That(t, pointcloud.WriteToFile(cloud, fn), test.ShouldBeNil)
	return fn
}
