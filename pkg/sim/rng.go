package sim

// RNG is a Mulberry32 generator. All simulation randomness flows through a
// single instance owned by the game, so two simulations created with the
// same seed and fed the same command stream produce identical state. The
// 32-bit state is cheap to snapshot and folds into the per-tick checksum.
type RNG struct {
	state uint32
}

// NewRNG returns a generator seeded with seed.
func NewRNG(seed uint32) *RNG {
	return &RNG{state: seed}
}

// Next advances the generator and returns a value in [0, 1).
func (r *RNG) Next() float64 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	t ^= t >> 14
	return float64(t) / 4294967296.0
}

// NextInt returns an integer in [min, max] inclusive.
func (r *RNG) NextInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + int(r.Next()*float64(max-min+1))
}

// NextFloat returns a float in [min, max).
func (r *RNG) NextFloat(min, max float64) float64 {
	return min + r.Next()*(max-min)
}

// NextBool returns true with probability p.
func (r *RNG) NextBool(p float64) bool {
	return r.Next() < p
}

// State returns the raw generator state for checksums and replays.
func (r *RNG) State() uint32 {
	return r.state
}

// SetState restores a previously captured state.
func (r *RNG) SetState(state uint32) {
	r.state = state
}

// SetSeed reseeds the generator.
func (r *RNG) SetSeed(seed uint32) {
	r.state = seed
}
