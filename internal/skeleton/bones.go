package skeleton

import (
	"math"

	"skel-runtime/internal/mathutil"
)

// UpdateWorldTransform computes the world transform of every bone from its
// local pose. Parents precede children in the bone list, so a single pass
// in index order sees every parent already updated.
func (inst *Instance) UpdateWorldTransform() {
	for i := range inst.Bones {
		b := &inst.Bones[i]
		if b.Parent >= 0 && b.Parent < i {
			inst.updateChild(b, &inst.Bones[b.Parent].World)
		} else {
			inst.updateRoot(b)
		}
	}
}

func localAxes(rotation, scaleX, scaleY, shearX, shearY float32) (la, lb, lc, ld float32) {
	rx := rotation + shearX
	ry := rotation + 90 + shearY
	la = mathutil.CosDeg(rx) * scaleX
	lb = mathutil.CosDeg(ry) * scaleY
	lc = mathutil.SinDeg(rx) * scaleX
	ld = mathutil.SinDeg(ry) * scaleY
	return
}

func (inst *Instance) updateRoot(b *Bone) {
	sx, sy := inst.ScaleX, inst.ScaleY
	la, lb, lc, ld := localAxes(b.Rotation, b.ScaleX, b.ScaleY, b.ShearX, b.ShearY)
	b.World = mathutil.Affine{
		A: la * sx, B: lb * sx,
		C: lc * sy, D: ld * sy,
		X: b.X*sx + inst.X,
		Y: b.Y*sy + inst.Y,
	}
}

func (inst *Instance) updateChild(b *Bone, parent *mathutil.Affine) {
	pa, pb, pc, pd := parent.A, parent.B, parent.C, parent.D
	w := &b.World
	w.X = pa*b.X + pb*b.Y + parent.X
	w.Y = pc*b.X + pd*b.Y + parent.Y

	switch b.Data.Mode {
	case ModeNormal:
		la, lb, lc, ld := localAxes(b.Rotation, b.ScaleX, b.ScaleY, b.ShearX, b.ShearY)
		w.A = pa*la + pb*lc
		w.B = pa*lb + pb*ld
		w.C = pc*la + pd*lc
		w.D = pc*lb + pd*ld
		return

	case ModeOnlyTranslation:
		w.A, w.B, w.C, w.D = localAxes(b.Rotation, b.ScaleX, b.ScaleY, b.ShearX, b.ShearY)

	case ModeNoRotationOrReflection:
		var prx float32
		s := pa*pa + pc*pc
		if s > 0.0001 {
			s = float32(math.Abs(float64(pa*pd-pb*pc))) / s
			pa /= inst.ScaleX
			pc /= inst.ScaleY
			pb = pc * s
			pd = pa * s
			prx = mathutil.Atan2Deg(pc, pa)
		} else {
			pa, pc = 0, 0
			prx = 90 - mathutil.Atan2Deg(pd, pb)
		}
		la, lb, lc, ld := localAxes(b.Rotation-prx, b.ScaleX, b.ScaleY, b.ShearX, b.ShearY)
		w.A = pa*la - pb*lc
		w.B = pa*lb - pb*ld
		w.C = pc*la + pd*lc
		w.D = pc*lb + pd*ld

	case ModeNoScale, ModeNoScaleOrReflection:
		cos, sin := mathutil.CosDeg(b.Rotation), mathutil.SinDeg(b.Rotation)
		za := (pa*cos + pb*sin) / inst.ScaleX
		zc := (pc*cos + pd*sin) / inst.ScaleY
		s := float32(math.Sqrt(float64(za*za + zc*zc)))
		if s > 0.00001 {
			s = 1 / s
		}
		za *= s
		zc *= s
		s = float32(math.Sqrt(float64(za*za + zc*zc)))
		if b.Data.Mode == ModeNoScale && (pa*pd-pb*pc < 0) != ((inst.ScaleX < 0) != (inst.ScaleY < 0)) {
			s = -s
		}
		r := math.Pi/2 + math.Atan2(float64(zc), float64(za))
		zb := float32(math.Cos(r)) * s
		zd := float32(math.Sin(r)) * s
		la, lb, lc, ld := localAxes(0, b.ScaleX, b.ScaleY, b.ShearX, b.ShearY)
		w.A = za*la + zb*lc
		w.B = za*lb + zb*ld
		w.C = zc*la + zd*lc
		w.D = zc*lb + zd*ld
	}

	w.A *= inst.ScaleX
	w.B *= inst.ScaleX
	w.C *= inst.ScaleY
	w.D *= inst.ScaleY
}
