package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parqueadero/internal/service"
)

const (
	AuthorizationHeaderKey  = "Authorization"
	AuthorizationTypeBearer = "Bearer"
	UserIDKey               = "userID"
	UserRoleKey             = "userRole"
	UserEmailKey            = "userEmail"
)

type AuthMiddleware struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthMiddleware(authService *service.AuthService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{authService: authService, logger: logger}
}

// Authenticate valida el JWT y deja el id, el rol y el correo del usuario
// en el contexto de gin para los handlers siguientes.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeaderKey)
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Falta el encabezado de autorización"})
			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) < 2 || !strings.EqualFold(fields[0], AuthorizationTypeBearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "El encabezado de autorización no tiene formato Bearer"})
			return
		}

		_, claims, err := m.authService.ValidateToken(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token no válido o expirado", "details": err.Error()})
			return
		}

		subject, okSubject := claims["sub"].(string)
		role, okRole := claims["rol"].(string)
		email, okEmail := claims["correo"].(string)
		if !okSubject || !okRole || !okEmail {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "El token no trae la información del usuario"})
			return
		}

		userID, err := strconv.Atoi(subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "El sujeto del token no es válido"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(UserRoleKey, role)
		c.Set(UserEmailKey, email)

		c.Next()
	}
}

// AuthorizeRole corta la petición si el rol autenticado no está entre los
// requeridos. Debe montarse después de Authenticate.
func (m *AuthMiddleware) AuthorizeRole(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get(UserRoleKey)
		if !exists {
			m.logger.Warn("no hay rol en el contexto, falta Authenticate() antes de AuthorizeRole")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "No tiene permisos para esta operación"})
			return
		}

		role, ok := roleVal.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "No tiene permisos para esta operación"})
			return
		}

		for _, required := range requiredRoles {
			if role == required {
				c.Next()
				return
			}
		}

		m.logger.Warn("rol sin permiso para la ruta",
			zap.String("rol", role),
			zap.Strings("requeridos", requiredRoles),
			zap.String("ruta", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "No tiene permisos para esta operación"})
	}
}
