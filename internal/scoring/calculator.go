package scoring

import (
	"math"
	"time"

	"github.com/breathclean/breathclean/internal/airquality"
	"github.com/breathclean/breathclean/internal/weather"
)

// Calculator derives route scores from raw point readings. It is
// stateless and safe for concurrent use.
type Calculator struct{}

// NewCalculator returns a Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// round1 rounds to one decimal place, the precision all scores are
// reported at.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// TemperatureScore scores an average temperature in degrees Celsius.
// 21C is ideal; a one-degree band around it still scores 100, beyond
// that the score drops 6 points per degree.
func TemperatureScore(avg float64) float64 {
	diff := math.Abs(avg - 21)
	if diff <= 1 {
		return 100
	}
	return math.Max(0, 100-diff*6)
}

// HumidityScore scores an average relative humidity percentage. The
// comfortable 45-55% band scores 100, outside it the score drops 2
// points per percentage point past the band.
func HumidityScore(avg float64) float64 {
	diff := math.Abs(avg - 50)
	if diff <= 5 {
		return 100
	}
	return math.Max(0, 100-(diff-5)*2)
}

// PressureScore scores an average pressure in hPa against the 1013 hPa
// standard atmosphere, with a 2 hPa tolerance band.
func PressureScore(avg float64) float64 {
	diff := math.Abs(avg - 1013)
	if diff <= 2 {
		return 100
	}
	return math.Max(0, 100-(diff-2)*4)
}

// ComputeWeatherScore scores each point reading individually and
// averages the per-field scores across the route; the raw field
// averages are carried separately in Details. Fields missing from
// individual readings shrink that field's sample rather than scoring
// as zero. A route with no usable reading at all scores zero with nil
// Details.
func (c *Calculator) ComputeWeatherScore(points []*weather.Main) WeatherScore {
	var (
		tempScoreSum, humScoreSum, presScoreSum float64
		rawTempSum, rawHumSum, rawPresSum       float64
		tempCount, humCount, presCount          int
		validPoints                             int
	)
	for _, p := range points {
		if p == nil {
			continue
		}
		validPoints++
		if p.Temp != nil {
			tempScoreSum += TemperatureScore(*p.Temp)
			rawTempSum += *p.Temp
			tempCount++
		}
		if p.Humidity != nil {
			humScoreSum += HumidityScore(*p.Humidity)
			rawHumSum += *p.Humidity
			humCount++
		}
		if p.Pressure != nil {
			presScoreSum += PressureScore(*p.Pressure)
			rawPresSum += *p.Pressure
			presCount++
		}
	}
	if validPoints == 0 {
		return WeatherScore{}
	}

	score := WeatherScore{Details: &WeatherDetails{}}
	if tempCount > 0 {
		score.Temperature = round1(tempScoreSum / float64(tempCount))
		avg := round1(rawTempSum / float64(tempCount))
		score.Details.AvgTemp = &avg
	}
	if humCount > 0 {
		score.Humidity = round1(humScoreSum / float64(humCount))
		avg := round1(rawHumSum / float64(humCount))
		score.Details.AvgHumidity = &avg
	}
	if presCount > 0 {
		score.Pressure = round1(presScoreSum / float64(presCount))
		avg := round1(rawPresSum / float64(presCount))
		score.Details.AvgPressure = &avg
	}
	score.Overall = round1(score.Temperature*0.5 + score.Humidity*0.3 + score.Pressure*0.2)
	return score
}

// AQIScoreValue maps an average AQI to a 0-100 score by linear
// interpolation inside the standard index brackets.
func AQIScoreValue(avg float64) float64 {
	switch {
	case avg <= 20:
		return 100
	case avg <= 50:
		return 100 - ((avg-20)/30)*20
	case avg <= 100:
		return 80 - ((avg-50)/50)*30
	case avg <= 150:
		return 50 - ((avg-100)/50)*20
	case avg <= 200:
		return 30 - ((avg-150)/50)*20
	default:
		return math.Max(0, 10-((avg-200)/100)*10)
	}
}

// AQICategory names the index bracket an average AQI falls in.
func AQICategory(avg float64) string {
	switch {
	case avg <= 20:
		return "Excellent"
	case avg <= 50:
		return "Good"
	case avg <= 100:
		return "Moderate"
	case avg <= 150:
		return "Unhealthy for Sensitive Groups"
	case avg <= 200:
		return "Unhealthy"
	case avg <= 300:
		return "Very Unhealthy"
	default:
		return "Hazardous"
	}
}

// ComputeAQIScore averages the AQI across a route's readings and scores
// the result. Details carry the last reported dominant pollutant and
// the per-pollutant index averages over the readings that reported
// each pollutant. Readings that failed or carried no index are skipped;
// a route with no usable reading at all scores zero under
// CategoryNoData with nil Details.
func (c *Calculator) ComputeAQIScore(points []*airquality.Reading) AQIScore {
	var (
		sum      float64
		count    int
		dominant string
	)
	for _, p := range points {
		if p == nil {
			continue
		}
		sum += p.AQI
		count++
		if p.DominantPollutant != "" {
			dominant = p.DominantPollutant
		}
	}
	if count == 0 {
		return AQIScore{AQI: 0, Score: 0, Category: CategoryNoData}
	}
	avg := sum / float64(count)
	return AQIScore{
		AQI:      round1(avg),
		Score:    round1(AQIScoreValue(avg)),
		Category: AQICategory(avg),
		Details: &AQIDetails{
			DominantPollutant: dominant,
			Pollutants:        averagePollutants(points),
		},
	}
}

// averagePollutants averages each pollutant over the readings that
// reported it. Returns nil when no reading carried any pollutant.
func averagePollutants(points []*airquality.Reading) *airquality.PollutantLevels {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	add := func(name string, v *float64) {
		if v != nil {
			sums[name] += *v
			counts[name]++
		}
	}
	for _, p := range points {
		if p == nil || p.Pollutants == nil {
			continue
		}
		add("pm25", p.Pollutants.PM25)
		add("pm10", p.Pollutants.PM10)
		add("o3", p.Pollutants.O3)
		add("no2", p.Pollutants.NO2)
		add("so2", p.Pollutants.SO2)
		add("co", p.Pollutants.CO)
	}
	if len(counts) == 0 {
		return nil
	}
	avg := func(name string) *float64 {
		c, ok := counts[name]
		if !ok {
			return nil
		}
		v := round1(sums[name] / float64(c))
		return &v
	}
	return &airquality.PollutantLevels{
		PM25: avg("pm25"),
		PM10: avg("pm10"),
		O3:   avg("o3"),
		NO2:  avg("no2"),
		SO2:  avg("so2"),
		CO:   avg("co"),
	}
}

// TrafficScore maps a congestion value in [0, 3] to a 0-100 score.
// Zero congestion scores 100; the curve falls off with exponent 0.7 so
// light congestion is penalised more than proportionally, and values
// past 3 clamp to zero.
func TrafficScore(value float64) float64 {
	if value <= 0 {
		return 100
	}
	normalized := math.Min(value, 3) / 3
	return round1((1 - math.Pow(normalized, 0.7)) * 100)
}

// Compute scores one route from its readings and traffic value.
func (c *Calculator) Compute(data RouteData, now time.Time) RouteScore {
	ws := c.ComputeWeatherScore(data.WeatherPoints)
	as := c.ComputeAQIScore(data.AQIPoints)
	ts := TrafficScore(data.TrafficValue)

	overall := round1(ws.Overall*weatherWeight + as.Score*aqiWeight + ts*trafficWeight)

	score := RouteScore{
		RouteIndex:      data.RouteIndex,
		RouteID:         data.RouteID,
		Distance:        data.Distance,
		Duration:        data.Duration,
		TravelMode:      data.TravelMode,
		BreakpointCount: data.Breakpoints,
		Weather:         ws,
		AQI:             as,
		Traffic:         ts,
		OverallScore:    overall,
		PreviousScore:   data.PreviousScore,
		ComputedAt:      now,
	}
	if data.PreviousScore != nil {
		delta := round1(overall - *data.PreviousScore)
		score.ScoreDelta = &delta
	}
	return score
}

// Summarize builds the best-route pointer and aggregate statistics for
// a set of scored routes.
func Summarize(routes []RouteScore) (BestRoute, Summary) {
	if len(routes) == 0 {
		return BestRoute{}, Summary{}
	}
	best := BestRoute{Index: routes[0].RouteIndex, Score: routes[0].OverallScore}
	min, max, sum := routes[0].OverallScore, routes[0].OverallScore, 0.0
	for _, r := range routes {
		sum += r.OverallScore
		if r.OverallScore > best.Score {
			best = BestRoute{Index: r.RouteIndex, Score: r.OverallScore}
		}
		if r.OverallScore < min {
			min = r.OverallScore
		}
		if r.OverallScore > max {
			max = r.OverallScore
		}
	}
	summary := Summary{
		TotalRoutes:  len(routes),
		AverageScore: round1(sum / float64(len(routes))),
		ScoreRange:   ScoreRange{Min: min, Max: max},
	}
	return best, summary
}
