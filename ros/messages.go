package ros

import (
	"time"
)

// Time is a ROS time.
type Time struct {
	Secs  int64 `json:"secs"`
	Nsecs int64 `json:"nsecs"`
}

// Time converts t to a time.Time. The zero ROS time is the zero time.Time.
func (t Time) Time() time.Time {
	if t.Secs == 0 && t.Nsecs == 0 {
		return time.Time{}
	}
	return time.Unix(t.Secs, t.Nsecs)
}

// Header is a std_msgs/Header.
type Header struct {
	Seq     uint32 `json:"seq"`
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// Datatypes of a PointField.
const (
	DatatypeInt8    = 1
	DatatypeUint8   = 2
	DatatypeInt16   = 3
	DatatypeUint16  = 4
	DatatypeInt32   = 5
	DatatypeUint32  = 6
	DatatypeFloat32 = 7
	DatatypeFloat64 = 8
)

// PointField is a sensor_msgs/PointField.
type PointField struct {
	Name     string `json:"name"`
	Offset   uint32 `json:"offset"`
	Datatype uint8  `json:"datatype"`
	Count    uint32 `json:"count"`
}

// PointCloud2 is a sensor_msgs/PointCloud2.
type PointCloud2 struct {
	Header      Header       `json:"header"`
	Height      uint32       `json:"height"`
	Width       uint32       `json:"width"`
	Fields      []PointField `json:"fields"`
	IsBigendian bool         `json:"is_bigendian"`
	PointStep   uint32       `json:"point_step"`
	RowStep     uint32       `json:"row_step"`
	Data        []byte       `json:"data"`
	IsDense     bool         `json:"is_dense"`
}

// PointCloud2Message is a PointCloud2 as gobag encodes it, with its record time.
type PointCloud2Message struct {
	Meta Time        `json:"meta"`
	Data PointCloud2 `json:"data"`
}

// Vector3 is a geometry_msgs/Vector3.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a geometry_msgs/Quaternion.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Transform is a geometry_msgs/Transform.
type Transform struct {
	Translation Vector3    `json:"translation"`
	Rotation    Quaternion `json:"rotation"`
}

// TransformStamped is a geometry_msgs/TransformStamped giving the pose of ChildFrameID in
// Header.FrameID.
type TransformStamped struct {
	Header       Header    `json:"header"`
	ChildFrameID string    `json:"child_frame_id"`
	Transform    Transform `json:"transform"`
}

// TFMessage is a tf2_msgs/TFMessage as gobag encodes it.
type TFMessage struct {
	Meta Time `json:"meta"`
	Data struct {
		Transforms []TransformStamped `json:"transforms"`
	} `json:"data"`
}
