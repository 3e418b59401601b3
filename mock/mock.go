// Package mock is used to generate mock files for testing.
package mock

//go:generate mockgen -source ../oidc/oidc_iface.go -destination mock_oidc/mock_oidc_iface.go
//go:generate mockgen -source ../oidc/loader/loader_iface.go -destination mock_loader/mock_loader_iface.go
//go:generate mockgen -source ../backend/backend_iface.go -destination mock_backend/mock_backend_iface.go
//go:generate mockgen -source ../sessionstorage/sessionstorage_iface.go -destination mock_sessionstorage/mock_sessionstorage_iface.go
