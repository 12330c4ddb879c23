package handlers

import (
	"github.com/gin-gonic/gin"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
)

func CreateCountryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCountry
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		country, err := models.CreateCountry(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, country)
	}
}

func ListCountriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		countries, err := models.ListCountries(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, countries)
	}
}
