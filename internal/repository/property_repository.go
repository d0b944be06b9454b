// This file defines the Property model and repository methods for CRUD,
// filtered listing and image management. A property belongs to a single owner
// and may carry any number of images, one of which can be flagged primary.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Property represents a real-estate unit persisted in the database. Optional
// numeric columns are nullable because listings are frequently incomplete.
type Property struct {
	ID           uint64
	OwnerID      uint64
	Title        string
	Description  sql.NullString
	Address      string
	City         string
	State        string
	ZipCode      sql.NullString
	Latitude     sql.NullFloat64
	Longitude    sql.NullFloat64
	PropertyType string
	Bedrooms     int
	Bathrooms    int
	AreaSqm      sql.NullFloat64
	Price        sql.NullFloat64
	Status       string
	Published    bool
	Images       []string
	OwnerName    string
	OwnerEmail   string
	OwnerPhone   sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PropertyImage is one row of property_images.
type PropertyImage struct {
	ID         uint64
	PropertyID uint64
	ImageURL   string
	IsPrimary  bool
}

// PropertyFilter captures the supported list filters plus pagination. A zero
// OwnerID means "do not restrict to an owner"; PublishedOnly hides drafts
// from everyone except the owner.
type PropertyFilter struct {
	OwnerID       uint64
	City          string
	PropertyType  string
	Status        string
	MinPrice      *float64
	MaxPrice      *float64
	PublishedOnly bool
	Page          int
	Limit         int
}

type PropertyRepo struct{ DB *sql.DB }

func NewPropertyRepo(db *sql.DB) *PropertyRepo { return &PropertyRepo{DB: db} }

const propertySelect = `
	SELECT p.id, p.owner_id, p.title, p.description, p.address, p.city, p.state,
	       p.zip_code, p.latitude, p.longitude, p.property_type, p.bedrooms,
	       p.bathrooms, p.area_sqm, p.price, p.status, p.published,
	       u.name, u.email, u.phone,
	       COALESCE(GROUP_CONCAT(pi.image_url ORDER BY pi.is_primary DESC, pi.id), ''),
	       p.created_at, p.updated_at
	FROM properties p
	LEFT JOIN users u ON u.id = p.owner_id
	LEFT JOIN property_images pi ON pi.property_id = p.id`

// List returns a page of properties matching the filter plus the total count
// before paging.
func (r *PropertyRepo) List(ctx context.Context, f PropertyFilter) ([]*Property, int64, error) {
	where := []string{}
	args := []any{}

	if f.OwnerID != 0 {
		where = append(where, "p.owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.City != "" {
		where = append(where, "p.city LIKE ?")
		args = append(args, "%"+f.City+"%")
	}
	if f.PropertyType != "" {
		where = append(where, "p.property_type = ?")
		args = append(args, f.PropertyType)
	}
	if f.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, f.Status)
	}
	if f.MinPrice != nil {
		where = append(where, "p.price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "p.price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.PublishedOnly {
		where = append(where, "p.published = 1")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	countSQL := "SELECT COUNT(*) FROM properties p WHERE " + cond
	if err := r.DB.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.Limit
	listSQL := propertySelect + " WHERE " + cond +
		" GROUP BY p.id ORDER BY p.created_at DESC LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, listSQL, append(args, f.Limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByID fetches a single property with owner info and images. It returns
// ErrNotFound when the row does not exist.
func (r *PropertyRepo) GetByID(ctx context.Context, id uint64) (*Property, error) {
	const q = " WHERE p.id = ? GROUP BY p.id"
	rows, err := r.DB.QueryContext(ctx, propertySelect+q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanProperty(rows)
}

// Create inserts a property and populates its ID.
func (r *PropertyRepo) Create(ctx context.Context, p *Property) error {
	const q = `INSERT INTO properties
		(owner_id, title, description, address, city, state, zip_code, latitude,
		 longitude, property_type, bedrooms, bathrooms, area_sqm, price, status, published)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.DB.ExecContext(ctx, q,
		p.OwnerID, p.Title, p.Description, p.Address, p.City, p.State, p.ZipCode,
		p.Latitude, p.Longitude, p.PropertyType, p.Bedrooms, p.Bathrooms,
		p.AreaSqm, p.Price, p.Status, p.Published)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Update rewrites the mutable columns of a property. Ownership is checked by
// the caller through the authz predicate; the WHERE clause only keys on id.
func (r *PropertyRepo) Update(ctx context.Context, p *Property) error {
	const q = `UPDATE properties SET
		title=?, description=?, address=?, city=?, state=?, zip_code=?, latitude=?,
		longitude=?, property_type=?, bedrooms=?, bathrooms=?, area_sqm=?, price=?,
		status=?, published=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=?`
	res, err := r.DB.ExecContext(ctx, q,
		p.Title, p.Description, p.Address, p.City, p.State, p.ZipCode, p.Latitude,
		p.Longitude, p.PropertyType, p.Bedrooms, p.Bathrooms, p.AreaSqm, p.Price,
		p.Status, p.Published, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a property and its images inside a transaction. It returns
// ErrConflict when pending or in-progress maintenance requests still
// reference the property.
func (r *PropertyRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var active int64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM maintenance_requests
		 WHERE property_id = ? AND status IN ('pending','in_progress')`, id).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		err = ErrConflict
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM property_images WHERE property_id = ?", id); err != nil {
		return err
	}
	var res sql.Result
	if res, err = tx.ExecContext(ctx, "DELETE FROM properties WHERE id = ?", id); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrNotFound
		return err
	}
	return nil
}

// AddImage inserts an image row. When the new image is primary, the previous
// primary flag is cleared first; both statements run in one transaction.
func (r *PropertyRepo) AddImage(ctx context.Context, img *PropertyImage) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	if img.IsPrimary {
		if _, err = tx.ExecContext(ctx,
			"UPDATE property_images SET is_primary=0 WHERE property_id=?", img.PropertyID); err != nil {
			return err
		}
	}
	var res sql.Result
	if res, err = tx.ExecContext(ctx,
		"INSERT INTO property_images (property_id, image_url, is_primary) VALUES (?,?,?)",
		img.PropertyID, img.ImageURL, img.IsPrimary); err != nil {
		return err
	}
	var id int64
	if id, err = res.LastInsertId(); err != nil {
		return err
	}
	img.ID = uint64(id)
	return nil
}

// scanProperty reads one joined row. The images column arrives as a comma
// separated GROUP_CONCAT string; empty means no images.
func scanProperty(rows *sql.Rows) (*Property, error) {
	p := new(Property)
	var images string
	err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.Address,
		&p.City, &p.State, &p.ZipCode, &p.Latitude, &p.Longitude, &p.PropertyType,
		&p.Bedrooms, &p.Bathrooms, &p.AreaSqm, &p.Price, &p.Status, &p.Published,
		&p.OwnerName, &p.OwnerEmail, &p.OwnerPhone, &images, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if images != "" {
		p.Images = strings.Split(images, ",")
	}
	return p, nil
}
