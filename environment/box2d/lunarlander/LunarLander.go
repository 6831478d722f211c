// Package lunarlander implements the Lunar Lander environment of OpenAI
// Gym on the Box2D physics engine. A lander starts at the top of the
// screen with a random push and must touch down on the landing pad
// between the two flags using its main and side engines.
package lunarlander

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"
	env "github.com/samuelfneumann/goppo/environment"
	ts "github.com/samuelfneumann/goppo/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	FPS   float64 = 50
	Scale float64 = 30.0 // Pixels per Box2D unit

	Gravity float64 = -10.0

	MainEnginePower float64 = 13.0
	SideEnginePower float64 = 0.6

	InitialRandom float64 = 1000.0 // Bound on the initial push

	LegAway         float64 = 20
	LegDown         float64 = 18
	LegW            float64 = 2
	LegH            float64 = 8
	LegSpringTorque float64 = 40

	SideEngineHeight float64 = 14.0
	SideEngineAway   float64 = 12.0

	ViewportW float64 = 600
	ViewportH float64 = 400

	Chunks int = 11

	ObservationDims int = 8
)

// Default starting position of the lander in Box2D units
const (
	InitialX float64 = ViewportW / Scale / 2
	InitialY float64 = ViewportH / Scale
)

// Box2D body types
const (
	staticBody  = 0
	dynamicBody = 2
)

// landerPoly is the outline of the lander in pixels
var landerPoly = [][2]float64{
	{-14, 17}, {-17, 0}, {-17, -10}, {17, -10}, {17, 0}, {14, 17},
}

// engines describes the thrust applied on a single step. Main is in
// [0, 1]. Side is in [-1, 1], where negative values fire the left
// engine and positive values the right.
type engines struct {
	main, side float64
}

// lunarLander implements the physics of the Lunar Lander environment
type lunarLander struct {
	task Task

	world  *box2d.B2World
	moon   *box2d.B2Body
	lander *box2d.B2Body
	legs   [2]*box2d.B2Body

	terrain   [][2]float64 // Surface points in Box2D units
	helipadX1 float64
	helipadX2 float64
	helipadY  float64

	gameOver      bool
	groundContact [2]bool
	mPower        float64
	sPower        float64

	rng      distuv.Uniform
	discount float64
	lastStep ts.TimeStep
}

func newLunarLander(task Task, discount float64,
	seed uint64) (*lunarLander, ts.TimeStep, error) {
	l := &lunarLander{
		task:     task,
		discount: discount,
		rng:      distuv.Uniform{Min: -1, Max: 1, Src: rand.NewSource(seed)},
	}
	task.register(l)

	step, err := l.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newLunarLander: %v", err)
	}
	return l, step, nil
}

// uniform samples uniformly from [min, max]
func (l *lunarLander) uniform(min, max float64) float64 {
	return min + (l.rng.Rand()+1)/2*(max-min)
}

// Reset builds a new world with fresh terrain and returns the first
// TimeStep of the episode
func (l *lunarLander) Reset() (ts.TimeStep, error) {
	start := l.task.Start()
	if err := validateStart(start); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	l.task.reset()

	world := box2d.MakeB2World(box2d.MakeB2Vec2(0, Gravity))
	l.world = &world
	l.world.SetContactListener(&contactDetector{l})
	l.gameOver = false
	l.groundContact = [2]bool{}
	l.lastStep = ts.TimeStep{Number: -1}

	l.buildTerrain()
	l.buildLander(start.AtVec(0), start.AtVec(1))

	step, err := l.step(engines{})
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	if step.Last() {
		return ts.TimeStep{}, fmt.Errorf("reset: episode ended on its " +
			"first step")
	}
	step.StepType = ts.First
	step.Reward = 0
	l.lastStep = step

	return step, nil
}

// buildTerrain creates the moon surface with a flat landing pad in the
// middle
func (l *lunarLander) buildTerrain() {
	w, h := ViewportW/Scale, ViewportH/Scale

	height := make([]float64, Chunks+1)
	for i := range height {
		height[i] = l.uniform(0, h/2)
	}
	chunkX := make([]float64, Chunks)
	for i := range chunkX {
		chunkX[i] = w / float64(Chunks-1) * float64(i)
	}

	l.helipadX1 = chunkX[Chunks/2-1]
	l.helipadX2 = chunkX[Chunks/2+1]
	l.helipadY = h / 4
	for i := Chunks/2 - 2; i <= Chunks/2+2; i++ {
		height[i] = l.helipadY
	}

	smooth := make([]float64, Chunks)
	for i := range smooth {
		prev := Chunks
		if i > 0 {
			prev = i - 1
		}
		smooth[i] = 0.33 * (height[prev] + height[i] + height[i+1])
	}

	def := box2d.MakeB2BodyDef()
	def.Type = staticBody
	l.moon = l.world.CreateBody(&def)

	floor := box2d.NewB2EdgeShape()
	floor.Set(box2d.MakeB2Vec2(0, 0), box2d.MakeB2Vec2(w, 0))
	floorFix := box2d.MakeB2FixtureDef()
	floorFix.Shape = floor
	l.moon.CreateFixtureFromDef(&floorFix)

	l.terrain = make([][2]float64, 0, Chunks)
	for i := 0; i < Chunks; i++ {
		l.terrain = append(l.terrain, [2]float64{chunkX[i], smooth[i]})
	}
	for i := 0; i < Chunks-1; i++ {
		edge := box2d.NewB2EdgeShape()
		edge.Set(box2d.MakeB2Vec2(chunkX[i], smooth[i]),
			box2d.MakeB2Vec2(chunkX[i+1], smooth[i+1]))

		fix := box2d.MakeB2FixtureDef()
		fix.Shape = edge
		fix.Friction = 0.1
		l.moon.CreateFixtureFromDef(&fix)
	}
}

// buildLander creates the lander and its legs at (x, y) and gives it a
// random initial push
func (l *lunarLander) buildLander(x, y float64) {
	def := box2d.MakeB2BodyDef()
	def.Type = dynamicBody
	def.Position = box2d.MakeB2Vec2(x, y)
	l.lander = l.world.CreateBody(&def)

	vertices := make([]box2d.B2Vec2, len(landerPoly))
	for i, v := range landerPoly {
		vertices[i] = box2d.MakeB2Vec2(v[0]/Scale, v[1]/Scale)
	}
	hull := box2d.NewB2PolygonShape()
	hull.Set(vertices, len(vertices))

	hullFix := box2d.MakeB2FixtureDef()
	hullFix.Shape = hull
	hullFix.Density = 5.0
	hullFix.Friction = 0.1
	hullFix.Filter.CategoryBits = 0x0010
	hullFix.Filter.MaskBits = 0x001
	l.lander.CreateFixtureFromDef(&hullFix)

	push := box2d.MakeB2Vec2(l.uniform(-InitialRandom, InitialRandom),
		l.uniform(-InitialRandom, InitialRandom))
	l.lander.ApplyForceToCenter(push, true)

	for j, side := range []float64{-1, 1} {
		legDef := box2d.MakeB2BodyDef()
		legDef.Type = dynamicBody
		legDef.Position = box2d.MakeB2Vec2(x-side*LegAway/Scale, y)
		legDef.Angle = side * 0.05
		leg := l.world.CreateBody(&legDef)

		box := box2d.NewB2PolygonShape()
		box.SetAsBox(LegW/Scale, LegH/Scale)
		legFix := box2d.MakeB2FixtureDef()
		legFix.Shape = box
		legFix.Density = 1.0
		legFix.Filter.CategoryBits = 0x0020
		legFix.Filter.MaskBits = 0x001
		leg.CreateFixtureFromDef(&legFix)

		joint := box2d.MakeB2RevoluteJointDef()
		joint.BodyA = l.lander
		joint.BodyB = leg
		joint.LocalAnchorA = box2d.MakeB2Vec2(0, 0)
		joint.LocalAnchorB = box2d.MakeB2Vec2(side*LegAway/Scale,
			LegDown/Scale)
		joint.EnableMotor = true
		joint.EnableLimit = true
		joint.MaxMotorTorque = LegSpringTorque
		joint.MotorSpeed = 0.3 * side
		if side < 0 {
			joint.LowerAngle, joint.UpperAngle = 0.9-0.5, 0.9
		} else {
			joint.LowerAngle, joint.UpperAngle = -0.9, -0.9+0.5
		}
		l.world.CreateJoint(&joint)

		l.legs[j] = leg
	}
}

// step fires the engines, advances the world by one frame and returns
// the resulting TimeStep
func (l *lunarLander) step(e engines) (ts.TimeStep, error) {
	angle := l.lander.GetAngle()
	tip := [2]float64{math.Sin(angle), math.Cos(angle)}
	side := [2]float64{-tip[1], tip[0]}
	dispersion := [2]float64{l.rng.Rand() / Scale, l.rng.Rand() / Scale}
	pos := l.lander.GetPosition()

	l.mPower = 0
	if e.main > 0 {
		l.mPower = e.main
		ox := tip[0]*(4/Scale+2*dispersion[0]) + side[0]*dispersion[1]
		oy := -tip[1]*(4/Scale+2*dispersion[0]) - side[1]*dispersion[1]
		l.lander.ApplyLinearImpulse(
			box2d.MakeB2Vec2(-ox*MainEnginePower*l.mPower,
				-oy*MainEnginePower*l.mPower),
			box2d.MakeB2Vec2(pos.X+ox, pos.Y+oy),
			true,
		)
	}

	l.sPower = 0
	if e.side != 0 {
		direction := math.Copysign(1, e.side)
		l.sPower = math.Abs(e.side)
		offset := 3*dispersion[1] + direction*SideEngineAway/Scale
		ox := tip[0]*dispersion[0] + side[0]*offset
		oy := -tip[1]*dispersion[0] - side[1]*offset
		l.lander.ApplyLinearImpulse(
			box2d.MakeB2Vec2(-ox*SideEnginePower*l.sPower,
				-oy*SideEnginePower*l.sPower),
			box2d.MakeB2Vec2(pos.X+ox-tip[0]*17/Scale,
				pos.Y+oy+tip[1]*SideEngineHeight/Scale),
			true,
		)
	}

	l.world.Step(1/FPS, 6*int(Scale), 2*int(Scale))

	state := l.observe()
	for i := 0; i < state.Len(); i++ {
		if math.IsNaN(state.AtVec(i)) {
			return ts.TimeStep{}, fmt.Errorf("step: simulation diverged")
		}
	}

	reward := l.task.GetReward(l.lastStep.Observation, nil, state)
	next := ts.New(ts.Mid, reward, l.discount, state, l.lastStep.Number+1)
	l.task.End(&next)

	l.lastStep = next
	return next, nil
}

// observe returns the state observation of the lander: position,
// velocity, angle, angular velocity and leg contacts
func (l *lunarLander) observe() *mat.VecDense {
	pos := l.lander.GetPosition()
	vel := l.lander.GetLinearVelocity()
	halfW, halfH := ViewportW/Scale/2, ViewportH/Scale/2

	var contact [2]float64
	for i, c := range l.groundContact {
		if c {
			contact[i] = 1
		}
	}

	return mat.NewVecDense(ObservationDims, []float64{
		(pos.X - halfW) / halfW,
		(pos.Y - (l.helipadY + LegDown/Scale)) / halfH,
		vel.X * halfW / FPS,
		vel.Y * halfH / FPS,
		l.lander.GetAngle(),
		20 * l.lander.GetAngularVelocity() / FPS,
		contact[0],
		contact[1],
	})
}

// ObservationSpec returns the observation specification of the
// environment
func (l *lunarLander) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)
	lower := make([]float64, ObservationDims)
	upper := make([]float64, ObservationDims)
	for i := 0; i < 6; i++ {
		lower[i], upper[i] = math.Inf(-1), math.Inf(1)
	}
	upper[6], upper[7] = 1, 1

	return env.NewSpec(shape, env.Observation,
		mat.NewVecDense(ObservationDims, lower),
		mat.NewVecDense(ObservationDims, upper), env.Continuous)
}

// DiscountSpec returns the discounting specification of the environment
func (l *lunarLander) DiscountSpec() env.Spec {
	bound := mat.NewVecDense(1, []float64{l.discount})
	return env.NewSpec(mat.NewVecDense(1, nil), env.Discount, bound, bound,
		env.Continuous)
}

// CurrentTimeStep returns the last TimeStep of the environment
func (l *lunarLander) CurrentTimeStep() ts.TimeStep {
	return l.lastStep
}

// contactDetector records when the lander hull hits the ground, which
// ends the episode, and when the legs touch or leave the ground
type contactDetector struct {
	l *lunarLander
}

func (c *contactDetector) touches(contact box2d.B2ContactInterface,
	body *box2d.B2Body) bool {
	return contact.GetFixtureA().GetBody() == body ||
		contact.GetFixtureB().GetBody() == body
}

func (c *contactDetector) BeginContact(contact box2d.B2ContactInterface) {
	if c.touches(contact, c.l.lander) {
		c.l.gameOver = true
	}
	for i, leg := range c.l.legs {
		if c.touches(contact, leg) {
			c.l.groundContact[i] = true
		}
	}
}

func (c *contactDetector) EndContact(contact box2d.B2ContactInterface) {
	for i, leg := range c.l.legs {
		if c.touches(contact, leg) {
			c.l.groundContact[i] = false
		}
	}
}

func (c *contactDetector) PreSolve(box2d.B2ContactInterface,
	box2d.B2Manifold) {
}

func (c *contactDetector) PostSolve(box2d.B2ContactInterface,
	*box2d.B2ContactImpulse) {
}

// validateStart checks that a starting position lies in the top half
// of the screen
func validateStart(start mat.Vector) error {
	if start.Len() != 2 {
		return fmt.Errorf("validateStart: expected a 2-dimensional "+
			"starting position but got %v dimensions", start.Len())
	}
	xBounds := r1.Interval{Min: 0, Max: ViewportW / Scale}
	yBounds := r1.Interval{Min: ViewportH / Scale / 2, Max: InitialY}

	if x := start.AtVec(0); x < xBounds.Min || x > xBounds.Max {
		return fmt.Errorf("validateStart: x position %v outside %v", x,
			xBounds)
	}
	if y := start.AtVec(1); y < yBounds.Min || y > yBounds.Max {
		return fmt.Errorf("validateStart: y position %v outside %v", y,
			yBounds)
	}
	return nil
}
