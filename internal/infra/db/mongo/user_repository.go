package mongo

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainuser "github.com/slogsolutions/WebBuyer/internal/domain/user"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	col := db.Collection("agg_user")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &UserRepository{col: col}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainuser.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	var doc userDocument
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainuser.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	doc := newUserDocument(user)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainuser.ErrEmailAlreadyUsed
		}
		return err
	}
	return nil
}

type userDocument struct {
	ID               string   `bson:"_id"`
	Email            string   `bson:"email"`
	Name             string   `bson:"name"`
	Phone            string   `bson:"phone,omitempty"`
	PasswordHash     string   `bson:"password_hash"`
	Roles            []string `bson:"roles"`
	IdentityVerified bool     `bson:"identity_verified"`
	PhoneVerified    *bool    `bson:"phone_verified,omitempty"`
	CreatedAt        int64    `bson:"created_at"`
	UpdatedAt        int64    `bson:"updated_at"`
}

func newUserDocument(u *domainuser.User) userDocument {
	roles := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		roles = append(roles, string(role))
	}
	doc := userDocument{
		ID:               string(u.ID),
		Email:            u.Email,
		Name:             u.Name,
		Phone:            u.Phone,
		PasswordHash:     u.PasswordHash,
		Roles:            roles,
		IdentityVerified: u.IdentityVerified,
		CreatedAt:        u.CreatedAt.UnixMilli(),
		UpdatedAt:        u.UpdatedAt.UnixMilli(),
	}
	if u.PhoneVerified != nil {
		verified := *u.PhoneVerified
		doc.PhoneVerified = &verified
	}
	return doc
}

func (d userDocument) toAggregate() *domainuser.User {
	roles := make([]domainuser.Role, 0, len(d.Roles))
	for _, role := range d.Roles {
		roles = append(roles, domainuser.Role(role))
	}
	u := &domainuser.User{
		ID:               domainuser.ID(d.ID),
		Email:            d.Email,
		Name:             d.Name,
		Phone:            d.Phone,
		PasswordHash:     d.PasswordHash,
		Roles:            roles,
		IdentityVerified: d.IdentityVerified,
		CreatedAt:        timestampToTime(d.CreatedAt),
		UpdatedAt:        timestampToTime(d.UpdatedAt),
	}
	if d.PhoneVerified != nil {
		verified := *d.PhoneVerified
		u.PhoneVerified = &verified
	}
	return u
}

var _ domainuser.Repository = (*UserRepository)(nil)
