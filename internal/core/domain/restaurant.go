package domain

import (
	"errors"
	"time"
)

type MenuItem struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Price int64  `json:"price"` // minor currency units
}

type Restaurant struct {
	ID                    string     `json:"_id"`
	OwnerID               string     `json:"user"`
	Name                  string     `json:"restaurantName"`
	City                  string     `json:"city"`
	Country               string     `json:"country"`
	DeliveryPrice         int64      `json:"deliveryPrice"`
	EstimatedDeliveryTime int        `json:"estimatedDeliveryTime"`
	Cuisines              []string   `json:"cuisines"`
	MenuItems             []MenuItem `json:"menuItems"`
	ImageURL              string     `json:"imageUrl"`
	LastUpdated           time.Time  `json:"lastUpdated"`
}

func (r Restaurant) Validate() error {
	switch {
	case r.ID == "":
		return errors.Join(ErrInvalidRecord, errors.New("restaurant id is required"))
	case r.Name == "" || r.City == "" || r.Country == "":
		return errors.Join(ErrInvalidRecord, errors.New("restaurant name, city and country are required"))
	case r.DeliveryPrice < 0:
		return errors.Join(ErrInvalidRecord, errors.New("delivery price must not be negative"))
	}
	for _, item := range r.MenuItems {
		if item.ID == "" || item.Name == "" || item.Price < 0 {
			return errors.Join(ErrInvalidRecord, errors.New("menu item is invalid"))
		}
	}
	return nil
}
