package domain

// MeansOfDeath maps the numeric kill method to the game's MOD_* constant
var MeansOfDeath = map[int]string{
	0:  "MOD_UNKNOWN",
	1:  "MOD_SHOTGUN",
	2:  "MOD_GAUNTLET",
	3:  "MOD_MACHINEGUN",
	4:  "MOD_GRENADE",
	5:  "MOD_GRENADE_SPLASH",
	6:  "MOD_ROCKET",
	7:  "MOD_ROCKET_SPLASH",
	8:  "MOD_PLASMA",
	9:  "MOD_PLASMA_SPLASH",
	10: "MOD_RAILGUN",
	11: "MOD_LIGHTNING",
	12: "MOD_BFG",
	13: "MOD_BFG_SPLASH",
	14: "MOD_WATER",
	15: "MOD_SLIME",
	16: "MOD_LAVA",
	17: "MOD_CRUSH",
	18: "MOD_TELEFRAG",
	19: "MOD_FALLING",
	20: "MOD_SUICIDE",
	21: "MOD_TARGET_LASER",
	22: "MOD_TRIGGER_HURT",
	23: "MOD_GRAPPLE",
}

// MethodLightning is the lightning gun's method id
const MethodLightning = 11

var weaponLabels = map[int]string{
	0:  "unknown",
	1:  "shotgun",
	2:  "gauntlet",
	3:  "machinegun",
	4:  "grenade launcher",
	5:  "grenade launcher",
	6:  "rocket launcher",
	7:  "rocket launcher",
	8:  "plasma gun",
	9:  "plasma gun",
	10: "railgun",
	11: "lightning gun",
	12: "BFG",
	13: "BFG",
	14: "drowning",
	15: "slime",
	16: "lava",
	17: "crushing",
	18: "telefrag",
	19: "falling damage",
	20: "suicide",
	21: "laser",
	22: "world",
	23: "grapple",
}

// WeaponLabel returns the human-readable weapon or cause for a method id.
// Splash variants share their weapon's label.
func WeaponLabel(methodID int) string {
	if label, ok := weaponLabels[methodID]; ok {
		return label
	}
	return "unknown"
}
