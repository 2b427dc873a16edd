package catalog

var defaultIncome = []string{
	"SUELDO DE ESPOSA",
	"SUELDO DE ESPOSO",
	"VENTA DE PRODUCTOS",
	"EXTRAS",
	"COBRO DE DEUDAS",
	"OTROS",
}

var defaultExpense = []string{
	"ALQUILER",
	"TARJETA DE CREDITO",
	"PLAN DE CELULAR",
	"INTERNET",
	"LUZ",
	"AGUA",
	"GAS",
	"RECARGA DE TELEFONOS",
	"PASAJES",
	"GASOLINA/COMBUSTIBLE",
	"DIEZMO",
	"OFRENDA",
	"MENSUALIDAD DE COLEGIO",
	"AHORRO FIJO EN BANCO",
	"ALIMENTOS (DESAYUNO, ALMUERZO, CENA)",
	"ROPA",
	"CALZADO / ZAPATILLA",
	"ARTICULOS DE COCINA",
	"UTENSILIOS DE LIMPIEZA",
	"ARTICULO PARA EL HOGAR",
	"COSAS NO NECESARIAS",
	"ARTICULOS DE ASEO PERSONAL",
	"ARTICULOS DE LIMPIEZA",
	"REGALOS",
	"TECNOLOGICOS",
	"ELECTRODOMESTICOS",
	"CITA MEDICA",
	"GASTOS MEDICOS",
	"MEDICINA / PASTILLAS",
	"SALIDAS",
	"TARJETA X",
	"LIBROS",
	"COMIDA DE MASCOTAS",
	"VETERINARIO",
	"ANIVERSARIO",
	"DONACION",
	"DENTISTA",
	"VIAJES INTERPROVINCIALES",
	"COLEGIO DE LOS NIÑOS",
	"PRESTAMOS",
}

// defaultFixed are substrings that mark a concept as a recurring charge.
var defaultFixed = []string{
	"ALQUILER",
	"INTERNET",
	"LUZ",
	"AGUA",
	"GAS",
	"PLAN DE CELULAR",
	"SUELDO",
	"MENSUALIDAD",
	"AHORRO FIJO",
}
