package weather

import "fmt"

// WMO weather interpretation codes.
var codes = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// Describe returns the wording for a weather code.
func Describe(code int) string {
	if s, ok := codes[code]; ok {
		return s
	}
	return "Unknown weather"
}

// Summary is a day formatted for a prompt.
type Summary struct {
	Date          string `json:"date"`
	High          string `json:"high"`
	Low           string `json:"low"`
	Precipitation string `json:"precipitation"`
	Wind          string `json:"wind"`
	Condition     string `json:"condition"`
}

// Summarize formats a day with units; missing readings read "N/A" except
// precipitation, which reads "0mm".
func (d Day) Summarize() Summary {
	s := Summary{
		Date:          d.Date,
		High:          orNA(d.MaxTemp, "%.1f°C"),
		Low:           orNA(d.MinTemp, "%.1f°C"),
		Precipitation: "0mm",
		Wind:          orNA(d.WindSpeed, "%.1fkm/h"),
		Condition:     "Unknown",
	}
	if d.Precipitation != nil {
		s.Precipitation = fmt.Sprintf("%.1fmm", *d.Precipitation)
	}
	if d.Code != nil {
		s.Condition = Describe(*d.Code)
	}
	return s
}

func orNA(v *float64, format string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf(format, *v)
}
