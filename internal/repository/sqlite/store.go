package sqlite

import (
	"database/sql"

	"github.com/creamcroissant/monitord/internal/repository"
)

// Store wires SQLite-backed repository implementations.
type Store struct {
	db                      *sql.DB
	hosts                   repository.HostRepository
	monitoringConfigs       repository.MonitoringConfigRepository
	samples                 repository.SampleRepository
	anomalies               repository.AnomalyRepository
	alertRecords            repository.AlertRecordRepository
	notificationDispatches  repository.NotificationDispatchRepository
	heartbeats              repository.HeartbeatRepository
	services                repository.ServiceRepository
	auditEvents             repository.AuditEventRepository
}

// NewStore constructs a SQLite-backed repository store.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		hosts:                  newHostRepo(db),
		monitoringConfigs:      newMonitoringConfigRepo(db),
		samples:                newSampleRepo(db),
		anomalies:              newAnomalyRepo(db),
		alertRecords:           newAlertRecordRepo(db),
		notificationDispatches: newNotificationDispatchRepo(db),
		heartbeats:             newHeartbeatRepo(db),
		services:               newServiceRepo(db),
		auditEvents:            newAuditEventRepo(db),
	}
}

func (s *Store) Hosts() repository.HostRepository                                     { return s.hosts }
func (s *Store) MonitoringConfigs() repository.MonitoringConfigRepository             { return s.monitoringConfigs }
func (s *Store) Samples() repository.SampleRepository                                 { return s.samples }
func (s *Store) Anomalies() repository.AnomalyRepository                              { return s.anomalies }
func (s *Store) AlertRecords() repository.AlertRecordRepository                        { return s.alertRecords }
func (s *Store) NotificationDispatches() repository.NotificationDispatchRepository     { return s.notificationDispatches }
func (s *Store) Heartbeats() repository.HeartbeatRepository                           { return s.heartbeats }
func (s *Store) Services() repository.ServiceRepository                               { return s.services }
func (s *Store) AuditEvents() repository.AuditEventRepository                         { return s.auditEvents }
