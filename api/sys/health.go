package sys

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/stephnangue/vaultclient/api"
)

// HealthResponse is the body of sys/health. The endpoint answers without a
// data envelope.
type HealthResponse struct {
	Initialized                bool   `json:"initialized"`
	Sealed                     bool   `json:"sealed"`
	Standby                    bool   `json:"standby"`
	PerformanceStandby         bool   `json:"performance_standby"`
	ReplicationPerformanceMode string `json:"replication_performance_mode"`
	ReplicationDRMode          string `json:"replication_dr_mode"`
	ServerTimeUTC              int64  `json:"server_time_utc"`
	Version                    string `json:"version"`
	ClusterName                string `json:"cluster_name,omitempty"`
	ClusterID                  string `json:"cluster_id,omitempty"`
}

// Health reports the server status. It needs no token. The server answers
// standby and sealed states with non-2xx codes unless told otherwise, so
// StandbyOK and PerfStandbyOK are usually set.
type Health struct {
	StandbyOK     bool
	PerfStandbyOK bool
}

func (e Health) Operation() api.Operation {
	params := url.Values{}
	if e.StandbyOK {
		params.Set("standbyok", strconv.FormatBool(true))
	}
	if e.PerfStandbyOK {
		params.Set("perfstandbyok", strconv.FormatBool(true))
	}
	return api.Operation{Method: http.MethodGet, Path: "sys/health", Params: params}
}

func (Health) Decode(r *api.Resource) (*HealthResponse, error) {
	out, err := api.DecodeData[HealthResponse](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type SealStatusResponse struct {
	Type         string `json:"type"`
	Initialized  bool   `json:"initialized"`
	Sealed       bool   `json:"sealed"`
	T            int    `json:"t"`
	N            int    `json:"n"`
	Progress     int    `json:"progress"`
	Nonce        string `json:"nonce"`
	Version      string `json:"version"`
	BuildDate    string `json:"build_date"`
	Migration    bool   `json:"migration"`
	ClusterName  string `json:"cluster_name,omitempty"`
	ClusterID    string `json:"cluster_id,omitempty"`
	RecoverySeal bool   `json:"recovery_seal"`
	StorageType  string `json:"storage_type,omitempty"`
}

// SealStatus reports the seal state of the server.
type SealStatus struct{}

func (SealStatus) Operation() api.Operation {
	return api.Operation{Method: http.MethodGet, Path: "sys/seal-status"}
}

func (SealStatus) Decode(r *api.Resource) (*SealStatusResponse, error) {
	out, err := api.DecodeData[SealStatusResponse](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
