package mapper

import (
	"github.com/osa911/datacap/internal/api/dto/v1/packages"
	"github.com/osa911/datacap/internal/api/dto/v1/quota"
	"github.com/osa911/datacap/internal/models"
	"github.com/osa911/datacap/internal/service"
)

// QuotaToResponse converts a stored quota to its DTO
func QuotaToResponse(q models.Quota) *quota.Response {
	return &quota.Response{
		LimitBytes:   q.LimitBytes,
		LimitMB:      q.LimitBytes / (1024 * 1024),
		ExpiryTimeMs: q.ExpiryTimeMs,
		Enabled:      q.Enabled,
	}
}

// PackageToResponse converts a catalog entry to its DTO
func PackageToResponse(p models.InternetPackage) packages.Response {
	return packages.Response{
		ID:           p.ID,
		Name:         p.Name,
		DataGB:       p.DataGB,
		ValidityDays: p.ValidityDays,
		LimitBytes:   p.LimitBytes(),
		USSDCode:     p.USSDCode,
		Description:  p.Description,
	}
}

// PackagesToResponses converts the whole catalog
func PackagesToResponses(pkgs []models.InternetPackage) []packages.Response {
	result := make([]packages.Response, len(pkgs))
	for i, p := range pkgs {
		result[i] = PackageToResponse(p)
	}
	return result
}

// PurchaseToResponse converts a completed purchase
func PurchaseToResponse(r *service.PurchaseResult) *packages.PurchaseResponse {
	if r == nil {
		return nil
	}
	return &packages.PurchaseResponse{
		Package:      PackageToResponse(r.Package),
		LimitBytes:   r.Quota.LimitBytes,
		ExpiryTimeMs: r.Quota.ExpiryTimeMs,
		Reply:        r.Reply,
		Message:      r.Message,
	}
}
