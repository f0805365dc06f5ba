package matchdomain

// Mods is the gameplay modifier bitmask carried by a score.
type Mods int

// Mod describes one bit of the mods bitmask.
type Mod struct {
	Bit  Mods
	Name string
	Code string
}

// modTable lists the known mods in ascending bit order.
var modTable = [...]Mod{
	{1, "NoFail", "NF"},
	{2, "Easy", "EZ"},
	{4, "TouchDevice", "TD"},
	{8, "Hidden", "HD"},
	{16, "HardRock", "HR"},
	{32, "SuddenDeath", "SD"},
	{64, "DoubleTime", "DT"},
	{128, "Relax", "RX"},
	{256, "HalfTime", "HT"},
	{512, "Nightcore", "NC"},
	{1024, "Flashlight", "FL"},
	{2048, "Autoplay", "AT"},
	{4096, "SpunOut", "SO"},
	{8192, "Relax2", "AP"},
	{16384, "Perfect", "PF"},
}

// KnownMods returns a copy of the mod table.
func KnownMods() []Mod {
	out := make([]Mod, len(modTable))
	copy(out, modTable[:])
	return out
}

// Has reports whether every bit of mod is set.
func (m Mods) Has(mod Mods) bool { return m&mod == mod }

// Decode returns the mods set in m, in table order. Bits are tested
// independently, so contradictory combinations are returned as-is.
func (m Mods) Decode() []Mod {
	out := make([]Mod, 0)
	for _, mod := range modTable {
		if m&mod.Bit != 0 {
			out = append(out, mod)
		}
	}
	return out
}

// Codes returns the short display codes of the mods set in m.
func (m Mods) Codes() []string {
	decoded := m.Decode()
	codes := make([]string, len(decoded))
	for i, mod := range decoded {
		codes[i] = mod.Code
	}
	return codes
}
