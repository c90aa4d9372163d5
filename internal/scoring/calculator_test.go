package scoring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breathclean/breathclean/internal/airquality"
	"github.com/breathclean/breathclean/internal/breakpoint"
	"github.com/breathclean/breathclean/internal/scoring"
	"github.com/breathclean/breathclean/internal/weather"
)

func fptr(v float64) *float64 { return &v }

func mainReading(temp, humidity, pressure float64) *weather.Main {
	return &weather.Main{Temp: fptr(temp), Humidity: fptr(humidity), Pressure: fptr(pressure)}
}

func TestTemperatureScore(t *testing.T) {
	cases := []struct {
		avg  float64
		want float64
	}{
		{21, 100},
		{20, 100},
		{22, 100},
		{25, 76},
		{30, 46},
		{10, 34},
		{40, 0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, scoring.TemperatureScore(tc.avg), 0.001, "avg %.1f", tc.avg)
	}
}

func TestHumidityScore(t *testing.T) {
	assert.InDelta(t, 100, scoring.HumidityScore(45), 0.001)
	assert.InDelta(t, 100, scoring.HumidityScore(55), 0.001)
	assert.InDelta(t, 90, scoring.HumidityScore(60), 0.001)
	assert.InDelta(t, 10, scoring.HumidityScore(100), 0.001)
	assert.InDelta(t, 10, scoring.HumidityScore(0), 0.001)
}

func TestPressureScore(t *testing.T) {
	assert.InDelta(t, 100, scoring.PressureScore(1013), 0.001)
	assert.InDelta(t, 100, scoring.PressureScore(1015), 0.001)
	assert.InDelta(t, 80, scoring.PressureScore(1020), 0.001)
	assert.InDelta(t, 0, scoring.PressureScore(980), 0.001)
}

func TestAQIScoreValue_Brackets(t *testing.T) {
	cases := []struct {
		avg  float64
		want float64
	}{
		{10, 100},
		{20, 100},
		{35, 90},
		{50, 80},
		{75, 65},
		{100, 50},
		{125, 40},
		{150, 30},
		{175, 20},
		{200, 10},
		{250, 5},
		{300, 0},
		{400, 0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, scoring.AQIScoreValue(tc.avg), 0.001, "avg %.1f", tc.avg)
	}
}

func TestAQIScoreValue_Monotonic(t *testing.T) {
	prev := scoring.AQIScoreValue(0)
	for avg := 1.0; avg <= 350; avg++ {
		cur := scoring.AQIScoreValue(avg)
		assert.LessOrEqual(t, cur, prev, "score rose between %.0f and %.0f", avg-1, avg)
		prev = cur
	}
}

func TestAQICategory(t *testing.T) {
	assert.Equal(t, "Excellent", scoring.AQICategory(15))
	assert.Equal(t, "Good", scoring.AQICategory(30))
	assert.Equal(t, "Moderate", scoring.AQICategory(80))
	assert.Equal(t, "Unhealthy for Sensitive Groups", scoring.AQICategory(120))
	assert.Equal(t, "Unhealthy", scoring.AQICategory(180))
	assert.Equal(t, "Very Unhealthy", scoring.AQICategory(250))
	assert.Equal(t, "Hazardous", scoring.AQICategory(320))
}

func TestTrafficScore(t *testing.T) {
	assert.InDelta(t, 100, scoring.TrafficScore(0), 0.001)
	assert.InDelta(t, 100, scoring.TrafficScore(-1), 0.001)
	assert.InDelta(t, 0, scoring.TrafficScore(3), 0.001)
	assert.InDelta(t, 0, scoring.TrafficScore(10), 0.001, "values past 3 clamp")
	assert.InDelta(t, 71.5, scoring.TrafficScore(0.5), 0.001)
	assert.InDelta(t, 24.7, scoring.TrafficScore(2), 0.001)
}

func TestTrafficScore_Monotonic(t *testing.T) {
	prev := scoring.TrafficScore(0)
	for v := 0.1; v <= 3.0; v += 0.1 {
		cur := scoring.TrafficScore(v)
		assert.LessOrEqual(t, cur, prev, "score rose at congestion %.1f", v)
		prev = cur
	}
}

func TestComputeWeatherScore_SkipsMissingFields(t *testing.T) {
	calc := scoring.NewCalculator()

	points := []*weather.Main{
		{Temp: fptr(21), Humidity: fptr(50)},
		{Temp: fptr(21), Pressure: fptr(1013)},
		nil,
	}
	score := calc.ComputeWeatherScore(points)

	assert.InDelta(t, 100, score.Temperature, 0.001)
	assert.InDelta(t, 100, score.Humidity, 0.001)
	assert.InDelta(t, 100, score.Pressure, 0.001)
	require.NotNil(t, score.Details)
	assert.InDelta(t, 21, *score.Details.AvgTemp, 0.001)
	assert.InDelta(t, 50, *score.Details.AvgHumidity, 0.001)
	assert.InDelta(t, 1013, *score.Details.AvgPressure, 0.001)
}

func TestComputeWeatherScore_ScoresEachPointBeforeAveraging(t *testing.T) {
	calc := scoring.NewCalculator()

	// 15C and 27C each score 64; averaging the raw temperatures first
	// would land on the ideal 21C and report a false 100.
	points := []*weather.Main{
		mainReading(15, 50, 1013),
		mainReading(27, 50, 1013),
	}
	score := calc.ComputeWeatherScore(points)

	assert.InDelta(t, 64, score.Temperature, 0.001)
	assert.InDelta(t, 100, score.Humidity, 0.001)
	assert.InDelta(t, 100, score.Pressure, 0.001)
	assert.InDelta(t, 82, score.Overall, 0.001)
	require.NotNil(t, score.Details)
	assert.InDelta(t, 21, *score.Details.AvgTemp, 0.001)
}

func TestComputeWeatherScore_NoData(t *testing.T) {
	calc := scoring.NewCalculator()

	score := calc.ComputeWeatherScore([]*weather.Main{nil, nil})

	assert.Zero(t, score.Temperature)
	assert.Zero(t, score.Humidity)
	assert.Zero(t, score.Pressure)
	assert.Zero(t, score.Overall)
	assert.Nil(t, score.Details)
}

func TestComputeWeatherScore_RoundsRawAverages(t *testing.T) {
	calc := scoring.NewCalculator()

	points := []*weather.Main{
		mainReading(20.11, 47.77, 1011.13),
		mainReading(20.22, 48.88, 1011.24),
	}
	score := calc.ComputeWeatherScore(points)

	require.NotNil(t, score.Details)
	assert.InDelta(t, 20.2, *score.Details.AvgTemp, 0.001)
	assert.InDelta(t, 48.3, *score.Details.AvgHumidity, 0.001)
	assert.InDelta(t, 1011.2, *score.Details.AvgPressure, 0.001)
}

func TestComputeAQIScore_AveragesPollutants(t *testing.T) {
	calc := scoring.NewCalculator()

	score := calc.ComputeAQIScore([]*airquality.Reading{
		{
			AQI:               40,
			DominantPollutant: "pm25",
			Pollutants:        &airquality.PollutantLevels{PM25: fptr(12), O3: fptr(30)},
		},
		{
			AQI:        60,
			Pollutants: &airquality.PollutantLevels{PM25: fptr(18.5)},
		},
		nil,
	})

	require.NotNil(t, score.Details)
	assert.Equal(t, "pm25", score.Details.DominantPollutant)
	require.NotNil(t, score.Details.Pollutants)
	assert.InDelta(t, 15.3, *score.Details.Pollutants.PM25, 0.001)
	assert.InDelta(t, 30, *score.Details.Pollutants.O3, 0.001)
	assert.Nil(t, score.Details.Pollutants.PM10)
	assert.Nil(t, score.Details.Pollutants.NO2)
}

func TestComputeAQIScore_NoPollutantData(t *testing.T) {
	calc := scoring.NewCalculator()

	score := calc.ComputeAQIScore([]*airquality.Reading{{AQI: 35}})

	require.NotNil(t, score.Details)
	assert.Empty(t, score.Details.DominantPollutant)
	assert.Nil(t, score.Details.Pollutants)
}

func TestComputeAQIScore_NoData(t *testing.T) {
	calc := scoring.NewCalculator()

	score := calc.ComputeAQIScore([]*airquality.Reading{nil, nil})

	assert.Zero(t, score.AQI)
	assert.Zero(t, score.Score)
	assert.Equal(t, scoring.CategoryNoData, score.Category)
	assert.Nil(t, score.Details)
}

func TestComputeAQIScore_VeryUnhealthy(t *testing.T) {
	calc := scoring.NewCalculator()

	score := calc.ComputeAQIScore([]*airquality.Reading{
		{AQI: 240, DominantPollutant: "pm25"},
		{AQI: 260},
	})

	assert.InDelta(t, 250, score.AQI, 0.001)
	assert.Equal(t, "Very Unhealthy", score.Category)
	assert.Greater(t, score.Score, 0.0)
	assert.LessOrEqual(t, score.Score, 10.0)
	require.NotNil(t, score.Details)
	assert.Equal(t, "pm25", score.Details.DominantPollutant)
}

func TestCompute_PerfectConditions(t *testing.T) {
	calc := scoring.NewCalculator()
	now := time.Now()

	score := calc.Compute(scoring.RouteData{
		RouteIndex:  0,
		Distance:    1200,
		Duration:    900,
		TravelMode:  breakpoint.ModeCycling,
		Breakpoints: 3,
		WeatherPoints: []*weather.Main{
			mainReading(21, 50, 1013),
			mainReading(21, 50, 1013),
			mainReading(21, 50, 1013),
		},
		AQIPoints: []*airquality.Reading{
			{AQI: 10}, {AQI: 15}, {AQI: 12},
		},
		TrafficValue: 0,
	}, now)

	assert.InDelta(t, 100, score.Weather.Overall, 0.001)
	assert.InDelta(t, 100, score.AQI.Score, 0.001)
	assert.InDelta(t, 100, score.Traffic, 0.001)
	assert.InDelta(t, 100, score.OverallScore, 0.001)
	assert.Equal(t, 3, score.BreakpointCount)
	assert.Equal(t, now, score.ComputedAt)
	assert.Nil(t, score.ScoreDelta)
}

func TestCompute_ScoreDelta(t *testing.T) {
	calc := scoring.NewCalculator()

	score := calc.Compute(scoring.RouteData{
		TravelMode:    breakpoint.ModeWalking,
		Breakpoints:   1,
		WeatherPoints: []*weather.Main{mainReading(21, 50, 1013)},
		AQIPoints:     []*airquality.Reading{{AQI: 10}},
		TrafficValue:  0,
		PreviousScore: fptr(80),
	}, time.Now())

	require.NotNil(t, score.PreviousScore)
	require.NotNil(t, score.ScoreDelta)
	assert.InDelta(t, 20, *score.ScoreDelta, 0.001)
}

func TestCompute_OverallBounded(t *testing.T) {
	calc := scoring.NewCalculator()

	score := calc.Compute(scoring.RouteData{
		TravelMode:    breakpoint.ModeDriving,
		Breakpoints:   2,
		WeatherPoints: []*weather.Main{mainReading(-10, 5, 950), nil},
		AQIPoints:     []*airquality.Reading{{AQI: 600}},
		TrafficValue:  3,
	}, time.Now())

	assert.GreaterOrEqual(t, score.OverallScore, 0.0)
	assert.LessOrEqual(t, score.OverallScore, 100.0)
}

func TestSummarize(t *testing.T) {
	best, summary := scoring.Summarize([]scoring.RouteScore{
		{RouteIndex: 0, OverallScore: 72.4},
		{RouteIndex: 1, OverallScore: 88.1},
		{RouteIndex: 2, OverallScore: 65.0},
	})

	assert.Equal(t, 1, best.Index)
	assert.InDelta(t, 88.1, best.Score, 0.001)
	assert.Equal(t, 3, summary.TotalRoutes)
	assert.InDelta(t, 75.2, summary.AverageScore, 0.001)
	assert.InDelta(t, 65.0, summary.ScoreRange.Min, 0.001)
	assert.InDelta(t, 88.1, summary.ScoreRange.Max, 0.001)
}

func TestSummarize_Empty(t *testing.T) {
	best, summary := scoring.Summarize(nil)

	assert.Zero(t, best)
	assert.Zero(t, summary)
}
