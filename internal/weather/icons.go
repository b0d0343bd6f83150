package weather

// icons maps OpenWeatherMap condition groups to display glyphs.
var icons = map[string]string{
	"Clear":        "☀",
	"Clouds":       "☁",
	"Rain":         "🌧",
	"Drizzle":      "🌦",
	"Thunderstorm": "⛈",
	"Snow":         "❄",
	"Mist":         "🌫",
	"Fog":          "🌫",
	"Haze":         "🌫",
	"Smoke":        "🌫",
	"Dust":         "🌫",
	"Sand":         "🌫",
	"Squall":       "💨",
	"Tornado":      "🌪",
}

// DefaultIcon is shown for unknown conditions.
const DefaultIcon = "🌡"

// Icon returns the glyph for a condition group.
func Icon(condition string) string {
	if icon, ok := icons[condition]; ok {
		return icon
	}
	return DefaultIcon
}
