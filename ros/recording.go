package ros

import (
	"encoding/json"
	"sort"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"

	"go.viam.com/obstacles/pointcloud"
	"go.viam.com/obstacles/referenceframe"
)

// Transform topics read alongside the clouds of a recording.
const (
	TopicTF       = "/tf"
	TopicTFStatic = "/tf_static"
)

// LoadRecording returns the clouds published on cloudTopic in rb, ordered by header stamp, and
// adds the transforms the bag carries to tree.
func LoadRecording(rb *rosbag.RosBag, cloudTopic string, tree *referenceframe.FrameTree) ([]*pointcloud.PointCloud, error) {
	msgs, err := MessagesForTopics(rb, cloudTopic, TopicTF, TopicTFStatic)
	if err != nil {
		return nil, err
	}
	return buildRecording(msgs, cloudTopic, tree)
}

func buildRecording(msgs map[string][][]byte, cloudTopic string, tree *referenceframe.FrameTree) ([]*pointcloud.PointCloud, error) {
	if len(msgs[cloudTopic]) == 0 {
		return nil, errors.Errorf("no messages for topic %s", cloudTopic)
	}
	if err := AddTransforms(tree, msgs[TopicTFStatic], true); err != nil {
		return nil, err
	}
	if err := AddTransforms(tree, msgs[TopicTF], false); err != nil {
		return nil, err
	}

	clouds := make([]*pointcloud.PointCloud, 0, len(msgs[cloudTopic]))
	for i, raw := range msgs[cloudTopic] {
		var msg PointCloud2Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, errors.Wrapf(err, "decoding %s message %d", cloudTopic, i)
		}
		cloud, err := msg.Data.ToPointCloud()
		if err != nil {
			return nil, errors.Wrapf(err, "%s message %d", cloudTopic, i)
		}
		if cloud.Timestamp().IsZero() {
			cloud = cloud.WithHeader(cloud.FrameID(), msg.Meta.Time())
		}
		clouds = append(clouds, cloud)
	}
	sort.SliceStable(clouds, func(i, j int) bool { return clouds[i].Timestamp().Before(clouds[j].Timestamp()) })
	return clouds, nil
}
