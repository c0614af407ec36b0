package ros

import (
	"encoding/json"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/obstacles/referenceframe"
	"go.viam.com/obstacles/spatialmath"
)

// Pose returns the pose the transform describes.
func (t Transform) Pose() spatialmath.Pose {
	q := spatialmath.Quaternion(quat.Number{
		Real: t.Rotation.W,
		Imag: t.Rotation.X,
		Jmag: t.Rotation.Y,
		Kmag: t.Rotation.Z,
	})
	return spatialmath.NewPose(r3.Vector{X: t.Translation.X, Y: t.Translation.Y, Z: t.Translation.Z}, &q)
}

// AddTransforms decodes the JSON encoded tf messages in msgs and adds every transform they
// carry to tree. Static transforms ignore their stamps.
func AddTransforms(tree *referenceframe.FrameTree, msgs [][]byte, static bool) error {
	var errs error
	for i, raw := range msgs {
		var msg TFMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return errors.Wrapf(err, "decoding tf message %d", i)
		}
		for _, tf := range msg.Data.Transforms {
			var err error
			if static {
				err = tree.SetStatic(tf.Header.FrameID, tf.ChildFrameID, tf.Transform.Pose())
			} else {
				err = tree.Set(tf.Header.FrameID, tf.ChildFrameID, tf.Transform.Pose(), tf.Header.Stamp.Time())
			}
			multierr.AppendInto(&errs, errors.Wrapf(err, "tf message %d", i))
		}
	}
	return errs
}
