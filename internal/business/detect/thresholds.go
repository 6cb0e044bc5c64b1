package detect

import "time"

// Thresholds 所有检测器的可调参数
type Thresholds struct {
	GPSSpoof         GPSSpoofThresholds         `mapstructure:"gps_spoof"`
	ImpossibleTravel ImpossibleTravelThresholds `mapstructure:"impossible_travel"`
	TimeAnomaly      TimeAnomalyThresholds      `mapstructure:"time_anomaly"`
	WorkEvidence     WorkEvidenceThresholds     `mapstructure:"work_evidence"`

	// 判断"同一天"使用的时区
	Location *time.Location `mapstructure:"-"`
}

// GPSSpoofThresholds 签到位置偏离
type GPSSpoofThresholds struct {
	DistanceMeters     float64 `mapstructure:"distance_m"`      // 超过即标记
	HighDistanceMeters float64 `mapstructure:"high_distance_m"` // 超过即 high
	ConfidenceBase     float64 `mapstructure:"confidence_base"`
	ConfidenceDivisor  float64 `mapstructure:"confidence_divisor_m"`
	ConfidenceCap      float64 `mapstructure:"confidence_cap"`
}

// ImpossibleTravelThresholds 两个工单之间不可能的移动
type ImpossibleTravelThresholds struct {
	MaxSpeedKmh       float64 `mapstructure:"max_speed_kmh"`
	FlagRatio         float64 `mapstructure:"flag_ratio"`
	HighRatio         float64 `mapstructure:"high_ratio"`
	MinDistanceMeters float64 `mapstructure:"min_distance_m"` // 短距离内 GPS 噪声占主导，不判断
	Confidence        float64 `mapstructure:"confidence"`
}

// TimeAnomalyThresholds 完成过快
type TimeAnomalyThresholds struct {
	FlagRatio          float64 `mapstructure:"flag_ratio"`
	HighRatio          float64 `mapstructure:"high_ratio"`
	MaxActualMinutes   float64 `mapstructure:"max_actual_minutes"`
	Confidence         float64 `mapstructure:"confidence"`
	DefaultMinutes     float64 `mapstructure:"default_minutes"`
	MinutesPerBedroom  float64 `mapstructure:"minutes_per_bedroom"`
	MinutesPerBathroom float64 `mapstructure:"minutes_per_bathroom"`
	DefaultBedrooms    int     `mapstructure:"default_bedrooms"`
	DefaultBathrooms   int     `mapstructure:"default_bathrooms"`
}

// WorkEvidenceThresholds 签到但无工作证据
type WorkEvidenceThresholds struct {
	CompletionRatio float64 `mapstructure:"completion_ratio"`
	Confidence      float64 `mapstructure:"confidence"`
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		GPSSpoof: GPSSpoofThresholds{
			DistanceMeters:     500,
			HighDistanceMeters: 1000,
			ConfidenceBase:     0.5,
			ConfidenceDivisor:  2000,
			ConfidenceCap:      0.9,
		},
		ImpossibleTravel: ImpossibleTravelThresholds{
			MaxSpeedKmh:       60,
			FlagRatio:         0.5,
			HighRatio:         0.25,
			MinDistanceMeters: 2000,
			Confidence:        0.75,
		},
		TimeAnomaly: TimeAnomalyThresholds{
			FlagRatio:          0.3,
			HighRatio:          0.15,
			MaxActualMinutes:   20,
			Confidence:         0.7,
			DefaultMinutes:     60,
			MinutesPerBedroom:  15,
			MinutesPerBathroom: 20,
			DefaultBedrooms:    2,
			DefaultBathrooms:   1,
		},
		WorkEvidence: WorkEvidenceThresholds{
			CompletionRatio: 0.5,
			Confidence:      0.6,
		},
		Location: time.UTC,
	}
}

func (t Thresholds) location() *time.Location {
	if t.Location == nil {
		return time.UTC
	}
	return t.Location
}
