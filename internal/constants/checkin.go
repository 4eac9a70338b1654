package constants

import "time"

// Destination zone. Fixed for the lifetime of the process.
const (
	DestinationLongitude = 135.4959 // Osaka Station
	DestinationLatitude  = 34.7024
	DestinationRadiusKm  = 1.0
	CircleSteps          = 64
	InitialZoom          = 14
)

// Map defaults.
const (
	DefaultMapStyle     = "mapbox://styles/mapbox/streets-v12"
	DefaultMapContainer = "map"
	PanDuration         = 500 * time.Millisecond
)

// Map resource ids and colors.
const (
	CircleSourceID    = "circle"
	CircleFillLayerID = "circle-fill"
	CircleLineLayerID = "circle-border"
	CircleColor       = "#4264fb"
	CircleFillOpacity = 0.2
	CircleLineWidth   = 2
	DestinationColor  = "#FF0000"
	UserInRangeColor  = "#32CD32"
	UserOutRangeColor = "#FF4500"
)

// Page text.
const (
	ButtonLabelInRange    = "撮影する"
	ButtonLabelOutOfRange = "指定範囲外です"
	StatusInRange         = "✅ 指定範囲内にいます。撮影ボタンを押してください。"
	StatusOutOfRange      = "❌ 大阪駅から1km以内に移動してください。"
	ErrGeolocationMissing = "お使いのブラウザは位置情報をサポートしていません。"
	ErrGeolocationFailed  = "ブラウザの位置情報取得に失敗しました。位置情報の使用を許可してください。"
	RetakeLabel           = "撮り直す"
	PreviewCaption        = "撮影結果プレビュー"
)

// CaptureState is the state of the capture flow.
type CaptureState string

const (
	CaptureIdle       CaptureState = "idle"
	CaptureCapturing  CaptureState = "capturing"
	CapturePreviewing CaptureState = "previewing"
)
