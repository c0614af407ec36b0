package ros

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/obstacles/pointcloud"
)

// ToPointCloud decodes the x, y and z fields of msg. Points with a non-finite coordinate are
// left out, as an unorganized cloud has no use for them.
func (msg *PointCloud2) ToPointCloud() (*pointcloud.PointCloud, error) {
	var readers [3]func([]byte) float64
	order := binary.ByteOrder(binary.LittleEndian)
	if msg.IsBigendian {
		order = binary.BigEndian
	}
	for i, name := range []string{"x", "y", "z"} {
		field, ok := msg.field(name)
		if !ok {
			return nil, errors.Errorf("point cloud has no %q field", name)
		}
		reader, size, err := fieldReader(field, order)
		if err != nil {
			return nil, err
		}
		if field.Offset+size > msg.PointStep {
			return nil, errors.Errorf("field %q does not fit in a point step of %d bytes", name, msg.PointStep)
		}
		offset := field.Offset
		readers[i] = func(point []byte) float64 { return reader(point[offset:]) }
	}

	rowStep := msg.RowStep
	if rowStep == 0 {
		rowStep = msg.Width * msg.PointStep
	}
	if msg.Width*msg.PointStep > rowStep {
		return nil, errors.Errorf("row step %d is shorter than %d points of %d bytes", rowStep, msg.Width, msg.PointStep)
	}
	if need := uint64(msg.Height) * uint64(rowStep); uint64(len(msg.Data)) < need {
		return nil, errors.Errorf("point cloud data has %d bytes, expected %d", len(msg.Data), need)
	}

	points := make([]r3.Vector, 0, int(msg.Width)*int(msg.Height))
	for row := uint32(0); row < msg.Height; row++ {
		for col := uint32(0); col < msg.Width; col++ {
			start := row*rowStep + col*msg.PointStep
			point := msg.Data[start : start+msg.PointStep]
			v := r3.Vector{X: readers[0](point), Y: readers[1](point), Z: readers[2](point)}
			if !finite(v) {
				continue
			}
			points = append(points, v)
		}
	}
	return pointcloud.New(msg.Header.FrameID, msg.Header.Stamp.Time(), points), nil
}

func (msg *PointCloud2) field(name string) (PointField, bool) {
	for _, f := range msg.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return PointField{}, false
}

func fieldReader(field PointField, order binary.ByteOrder) (func([]byte) float64, uint32, error) {
	if field.Count > 1 {
		return nil, 0, errors.Errorf("field %q has %d elements, expected 1", field.Name, field.Count)
	}
	switch field.Datatype {
	case DatatypeFloat32:
		return func(b []byte) float64 { return float64(math.Float32frombits(order.Uint32(b))) }, 4, nil
	case DatatypeFloat64:
		return func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }, 8, nil
	default:
		return nil, 0, errors.Errorf("field %q has unsupported datatype %d", field.Name, field.Datatype)
	}
}

func finite(v r3.Vector) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
