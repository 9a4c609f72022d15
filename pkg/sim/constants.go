package sim

// Default tuning values. Sessions may override any of these through Config;
// both sides of a match must agree on the final values or their checksums
// diverge immediately.
const (
	DefaultTickRate           = 60
	DefaultDeploymentSeconds  = 60.0
	DefaultEconomyTickSeconds = 4.0
	DefaultIncomePerTick      = 10
	DefaultVictoryThreshold   = 2000
	DefaultStartingCredits    = 750
)

// Balance constants baked into the simulation. Changing any of these breaks
// replay compatibility with recorded command logs.
const (
	maxCommandQueue = 16

	arrivalEpsilon = 0.5
	fastMoveFactor = 1.5
	reverseFactor  = 0.5
	unloadRadius   = 3.0
	exitRadius     = 2.0

	maxMorale                  = 100.0
	moraleDamageFactor         = 1.5
	moraleRecoveryPerSecond    = 5.0
	suppressionDecayPerSecond  = 10.0
	recoverySuppressionCeiling = 25.0

	maxCoverReduction    = 0.2
	garrisonDamageFactor = 0.5
	smokeAccuracyFactor  = 0.5

	captureRatePerSecond = 10.0
	captureComplete      = 100.0

	returnFireMemorySeconds    = 5.0
	defensiveStructureCapacity = 2

	// cos 45: boundary between the front arc and the side arcs.
	frontArcCos = 0.7071067811865476
)
