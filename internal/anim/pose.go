package anim

import "skel-runtime/internal/skeleton"

// PoseAt resets inst to its setup pose, applies the named animation at time
// t on a fresh single-channel state and updates world transforms. An empty
// name leaves the setup pose. Looping wraps t into the animation; otherwise
// t past the end holds the last frame.
func PoseAt(inst *skeleton.Instance, name string, t float32, loop bool) error {
	inst.SetToSetupPose()
	if name != "" {
		s := New(inst.Data)
		e, err := s.SetAnimation(0, name, loop)
		if err != nil {
			return err
		}
		if !loop && t > e.Animation.Duration {
			t = e.Animation.Duration
		}
		s.Update(t)
		s.Apply(inst)
	}
	inst.UpdateWorldTransform()
	return nil
}
