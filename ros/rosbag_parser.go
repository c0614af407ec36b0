// Package ros reads recorded ROS bags: point clouds published as sensor_msgs/PointCloud2 and
// the transforms published on /tf and /tf_static.
package ros

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (*rosbag.RosBag, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	rb := rosbag.NewRosBag()

	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to create ros bag, error")
	}

	return rb, nil
}

// topicKey is the key gobag files the messages of topic under.
func topicKey(topic string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(topic, "/"), "/", "_"))
}

// MessagesForTopics returns the JSON encoded messages of each of the given topics, in bag
// order. Topics without messages are absent from the result.
func MessagesForTopics(rb *rosbag.RosBag, topics ...string) (map[string][][]byte, error) {
	wanted := make(map[string]bool, len(topics))
	for _, topic := range topics {
		wanted[topic] = true
	}
	if err := rb.ParseTopicsToJSON(
		"",
		func(int64) bool { return true },
		func(t string) bool { return wanted[t] },
		false,
	); err != nil {
		return nil, errors.Wrapf(err, "error while parsing bag to JSON")
	}

	all := make(map[string][][]byte, len(topics))
	for _, topic := range topics {
		msgs := rb.TopicsAsJSON[topicKey(topic)]
		if msgs == nil {
			continue
		}
		lines, err := splitLines(msgs)
		if err != nil {
			return nil, errors.Wrapf(err, "topic %s", topic)
		}
		if len(lines) > 0 {
			all[topic] = lines
		}
	}
	return all, nil
}

func splitLines(msgs *bytes.Buffer) ([][]byte, error) {
	var lines [][]byte
	for {
		data, err := msgs.ReadBytes('\n')
		if len(bytes.TrimSpace(data)) > 0 {
			lines = append(lines, bytes.TrimSpace(data))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, nil
			}
			return nil, err
		}
	}
}
