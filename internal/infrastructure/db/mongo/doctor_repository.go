package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/medibook/appointment-api/internal/core/domain"
)

const doctorCollection = "doctors"

type MongoDoctorRepository struct {
	coll *mongo.Collection
}

func NewDoctorRepository(db *mongo.Database) *MongoDoctorRepository {
	return &MongoDoctorRepository{coll: db.Collection(doctorCollection)}
}

type mongoDoctor struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	UserID         string             `bson:"user_id"`
	FirstName      string             `bson:"first_name"`
	LastName       string             `bson:"last_name"`
	Email          string             `bson:"email"`
	Gender         string             `bson:"gender"`
	ProfilePicture string             `bson:"profile_picture,omitempty"`
	Description    string             `bson:"description"`
	Experience     string             `bson:"experience"`
	Price          float64            `bson:"price"`
	CreatedAt      int64              `bson:"created_at"`
	UpdatedAt      int64              `bson:"updated_at"`
}

func (r *MongoDoctorRepository) Create(ctx context.Context, doctor *domain.Doctor) (*domain.Doctor, error) {
	doc := mongoDoctor{
		UserID:         doctor.UserID,
		FirstName:      doctor.FirstName,
		LastName:       doctor.LastName,
		Email:          doctor.Email,
		Gender:         string(doctor.Gender),
		ProfilePicture: doctor.ProfilePicture,
		Description:    doctor.Description,
		Experience:     doctor.Experience,
		Price:          doctor.Price,
		CreatedAt:      doctor.CreatedAt.Unix(),
		UpdatedAt:      doctor.UpdatedAt.Unix(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert doctor: %w", err)
	}

	created := *doctor
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *MongoDoctorRepository) FindByUserID(ctx context.Context, userID string) (*domain.Doctor, error) {
	var md mongoDoctor
	if err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&md); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("find doctor: %w", err)
	}

	return &domain.Doctor{
		ID:             md.ID.Hex(),
		UserID:         md.UserID,
		FirstName:      md.FirstName,
		LastName:       md.LastName,
		Email:          md.Email,
		Gender:         domain.Gender(md.Gender),
		ProfilePicture: md.ProfilePicture,
		Description:    md.Description,
		Experience:     md.Experience,
		Price:          md.Price,
		CreatedAt:      unixToTime(md.CreatedAt),
		UpdatedAt:      unixToTime(md.UpdatedAt),
	}, nil
}
